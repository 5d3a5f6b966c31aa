// Package main implements the tb CLI, a terminal client for the taskboard
// server.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tb",
	Short:         "Taskboard - boards and tasks from the terminal",
	SilenceUsage:  true,
	SilenceErrors: false,
}
