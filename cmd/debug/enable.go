package debug

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "enable a breakpoint",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := breakpointID(args)
		if err != nil {
			return err
		}
		return sess.BreakEnable(id)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "disable a breakpoint without deleting it",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := breakpointID(args)
		if err != nil {
			return err
		}
		return sess.BreakDisable(id)
	},
}

func breakpointID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected a breakpoint id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errors.New("invalid breakpoint id: " + args[0])
	}
	return id, nil
}

func init() {
	debugRootCmd.AddCommand(enableCmd)
	debugRootCmd.AddCommand(disableCmd)
}
