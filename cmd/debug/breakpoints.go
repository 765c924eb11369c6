package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var breaksCmd = &cobra.Command{
	Use:     "breaks",
	Short:   "list all breakpoints",
	Aliases: []string{"bs", "breakpoints"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	Run: func(cmd *cobra.Command, args []string) {
		bps := sess.Breakpoints()
		if len(bps) == 0 {
			fmt.Println("no breakpoints")
			return
		}
		for _, bp := range bps {
			state := "enabled"
			if !bp.Enabled {
				state = "disabled"
			}
			fmt.Printf("breakpoint %d %s at %s:%d", bp.ID, state, bp.File, bp.Line)
			if bp.Condition != "" {
				fmt.Printf(" if %s", bp.Condition)
			}
			fmt.Printf(", hit %d times\n", bp.HitCount)
		}
	},
}

func init() {
	debugRootCmd.AddCommand(breaksCmd)
}
