package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var localsCmd = &cobra.Command{
	Use:   "locals",
	Short: "print variables of the current frame",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := sess.ListVariables()
		if err != nil {
			return err
		}
		if len(vars) == 0 {
			fmt.Println("no locals")
			return nil
		}
		for _, v := range vars {
			if v.Type != "" {
				fmt.Printf("%s %s = %s\n", v.Type, v.Name, v.Value)
				continue
			}
			fmt.Printf("%s = %s\n", v.Name, v.Value)
		}
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(localsCmd)
}
