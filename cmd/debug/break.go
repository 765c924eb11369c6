package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var breakCmd = &cobra.Command{
	Use:   "break <locspec> [condition...]",
	Short: "set a breakpoint",
	Long: `set a breakpoint at a source location.

Supported locspec forms, as understood by gdb:
- [file:]line
- [file:]function
- *address

Any text after the locspec becomes the breakpoint condition.`,
	Aliases: []string{"b", "breakpoint"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("expected a locspec")
		}

		condition := strings.Join(args[1:], " ")
		bp, err := sess.BreakInsert(args[0], condition)
		if err != nil {
			return err
		}

		fmt.Printf("breakpoint %d at %s:%d", bp.ID, bp.File, bp.Line)
		if bp.Condition != "" {
			fmt.Printf(" if %s", bp.Condition)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(breakCmd)
}
