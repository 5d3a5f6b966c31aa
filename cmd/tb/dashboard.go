package main

import (
	"github.com/spf13/cobra"

	"taskboard/internal/boardtui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Browse boards and tasks interactively",
	Aliases: []string{
		"ui",
	},
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}
	return boardtui.Run(cmd.Context(), a.cache)
}
