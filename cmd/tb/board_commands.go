package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taskboard/board"
	"taskboard/internal/ui"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage boards",
}

// board list
var boardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boards",
	Args:  cobra.NoArgs,
	RunE:  runBoardList,
}

var boardListJSON bool

// board add
var boardAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a board",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoardAdd,
}

// board rename
var boardRenameCmd = &cobra.Command{
	Use:   "rename <board> <name>",
	Short: "Rename a board",
	Args:  cobra.ExactArgs(2),
	RunE:  runBoardRename,
}

// board rm
var boardRemoveCmd = &cobra.Command{
	Use:   "rm <board>",
	Short: "Delete a board and all of its tasks",
	Aliases: []string{
		"remove",
	},
	Args: cobra.ExactArgs(1),
	RunE: runBoardRemove,
}

var boardRemoveYes bool

// tb filter
var filterCmd = &cobra.Command{
	Use:   "filter <board> [all|completed|incomplete]",
	Short: "Show or set a board's task filter",
	Long: `Show or set a board's task filter.

The filter decides which tasks 'tb task list' shows for the board. It is
remembered per board across runs.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(boardCmd, filterCmd)
	boardCmd.AddCommand(boardListCmd, boardAddCmd, boardRenameCmd, boardRemoveCmd)

	boardListCmd.Flags().BoolVar(&boardListJSON, "json", false, "Output as JSON")
	boardRemoveCmd.Flags().BoolVarP(&boardRemoveYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runBoardList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}
	if err := a.cache.FetchBoards(cmd.Context()); err != nil {
		return err
	}

	boards := a.cache.Boards()
	if boardListJSON {
		return encodeJSONToStdout(boards)
	}
	if len(boards) == 0 {
		printSuccess("No boards; create one with 'tb board add <name>'")
		return nil
	}

	builder := ui.NewTableBuilder([]string{"ID", "NAME", "FILTER"}, len(boards))
	for _, b := range boards {
		builder.AddRow([]string{strconv.Itoa(b.ID), b.Name, string(a.cache.Filter(b.ID))})
	}
	fmt.Print(builder.String())
	return nil
}

func runBoardAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}

	created, err := a.cache.AddBoard(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printSuccess("Created board %q (id %d)", created.Name, created.ID)
	return nil
}

func runBoardRename(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}

	b, err := a.resolveBoard(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := a.cache.RenameBoard(cmd.Context(), b.ID, args[1]); err != nil {
		return err
	}
	printSuccess("Renamed board %d to %q", b.ID, args[1])
	return nil
}

func runBoardRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}

	b, err := a.resolveBoard(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if !boardRemoveYes {
		ok, err := confirmPrompt(fmt.Sprintf("Delete board %q and all of its tasks?", b.Name))
		if err != nil {
			return err
		}
		if !ok {
			printSuccess("Aborted")
			return nil
		}
	}

	if err := a.cache.DeleteBoard(cmd.Context(), b.ID); err != nil {
		return err
	}
	printSuccess("Deleted board %q", b.Name)
	return nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(cmd.Context()); err != nil {
		return err
	}

	b, err := a.resolveBoard(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(args) == 1 {
		printSuccess("%s", a.cache.Filter(b.ID))
		return nil
	}

	filter, err := board.ParseFilter(args[1])
	if err != nil {
		return err
	}
	if err := a.cache.SetFilter(b.ID, filter); err != nil {
		return err
	}
	printSuccess("Board %q now shows %s tasks", b.Name, filter)
	return nil
}
