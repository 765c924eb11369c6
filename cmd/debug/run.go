package debug

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start target execution",
	Aliases: []string{
		"r",
	},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sess.Run()
	},
}

func init() {
	debugRootCmd.AddCommand(runCmd)
}
