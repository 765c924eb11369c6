package debug

import (
	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:     "step",
	Short:   "step into function calls",
	Aliases: []string{"s"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sess.Step()
	},
}

var stepoutCmd = &cobra.Command{
	Use:     "stepout",
	Short:   "run until the current function returns",
	Aliases: []string{"finish", "fin"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sess.Finish()
	},
}

func init() {
	debugRootCmd.AddCommand(stepCmd)
	debugRootCmd.AddCommand(stepoutCmd)
}
