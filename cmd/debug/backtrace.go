package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backtraceCmd = &cobra.Command{
	Use:     "bt",
	Short:   "print the call stack",
	Aliases: []string{"backtrace"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, err := sess.ListStack()
		if err != nil {
			return err
		}
		for _, f := range frames {
			fmt.Printf("#%d %s at %s:%d (%s)\n", f.Level, f.Function, f.File, f.Line, f.Address)
		}
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(backtraceCmd)
}
