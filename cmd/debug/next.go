package debug

import (
	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:     "next",
	Short:   "step over the current source line",
	Aliases: []string{"n"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sess.Next()
	},
}

func init() {
	debugRootCmd.AddCommand(nextCmd)
}
