package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <id>",
	Short: "delete a breakpoint",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("expected a breakpoint id")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.New("invalid breakpoint id: " + args[0])
		}

		if err := sess.BreakDelete(id); err != nil {
			return err
		}
		fmt.Printf("breakpoint %d deleted\n", id)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearCmd)
}
