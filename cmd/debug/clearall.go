package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearallCmd = &cobra.Command{
	Use:   "clearall",
	Short: "delete all breakpoints",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, bp := range sess.Breakpoints() {
			if err := sess.BreakDelete(bp.ID); err != nil {
				return err
			}
			fmt.Printf("breakpoint %d deleted\n", bp.ID)
		}
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearallCmd)
}
