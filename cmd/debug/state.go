package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "print the current execution state",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(describeState(sess.State()))
	},
}

func init() {
	debugRootCmd.AddCommand(stateCmd)
}
