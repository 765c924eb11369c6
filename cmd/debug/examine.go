package debug

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var examineCmd = &cobra.Command{
	Use:     "x <addr> [count]",
	Short:   "dump target memory",
	Aliases: []string{"examine"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("expected an address expression")
		}

		count := 64
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return errors.New("invalid byte count: " + args[1])
			}
			count = n
		}

		data, err := sess.ReadMemory(args[0], count)
		if err != nil {
			return err
		}
		fmt.Print(hex.Dump(data))
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(examineCmd)
}
