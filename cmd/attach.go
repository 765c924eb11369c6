/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gdbfront/cmd/debug"
	"gdbfront/pkg/gdb"
)

// attachCmd represents the attach command
var attachCmd = &cobra.Command{
	Use:   "attach <pid>",
	Short: "debug a running process",
	Long:  `debug a running process by attaching gdb to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("expected a single pid")
		}

		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.New("invalid pid: " + args[0])
		}

		return debug.StartSession(gdb.Config{
			GDBPath:   viper.GetString("gdb.path"),
			AttachPID: pid,
			Timeout:   viper.GetDuration("gdb.timeout"),
		})
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		debug.CurrentSession = debug.NewDebugSession().AtExit(debug.CloseSession)
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
