package debug

import (
	"github.com/spf13/cobra"
)

var interruptCmd = &cobra.Command{
	Use:     "interrupt",
	Short:   "suspend the running target",
	Aliases: []string{"pause"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return sess.Interrupt()
	},
}

func init() {
	debugRootCmd.AddCommand(interruptCmd)
}
