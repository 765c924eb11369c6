package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var miCmd = &cobra.Command{
	Use:   "mi <command...>",
	Short: "send a raw MI command",
	Long: `send a raw MI command and print the reply verbatim.

Escape hatch for operations the shell has no command for, e.g.
  mi -thread-info`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("expected an MI command")
		}

		handle, err := sess.Submit(strings.Join(args, " "))
		if err != nil {
			return err
		}
		res := <-handle.Done()
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Raw)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(miCmd)
}
