package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var printCmd = &cobra.Command{
	Use:     "print <expr>",
	Short:   "evaluate an expression in the current frame",
	Aliases: []string{"p"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("expected an expression")
		}
		expr := strings.Join(args, " ")

		value, err := sess.Evaluate(expr)
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", expr, value)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(printCmd)
}
