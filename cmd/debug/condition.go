package debug

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var conditionCmd = &cobra.Command{
	Use:   "condition <id> [expr...]",
	Short: "set or clear a breakpoint condition",
	Long: `set or clear a breakpoint condition.

Without an expression the breakpoint becomes unconditional.`,
	Aliases: []string{"cond"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("expected a breakpoint id")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.New("invalid breakpoint id: " + args[0])
		}

		return sess.BreakCondition(id, strings.Join(args[1:], " "))
	},
}

func init() {
	debugRootCmd.AddCommand(conditionCmd)
}
