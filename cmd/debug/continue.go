package debug

import (
	"github.com/spf13/cobra"
)

var continueCmd = &cobra.Command{
	Use:     "continue",
	Short:   "resume until the next stop",
	Aliases: []string{"c"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sess.Continue()
	},
}

func init() {
	debugRootCmd.AddCommand(continueCmd)
}
