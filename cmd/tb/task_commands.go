package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"taskboard/board"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks on a board",
}

// task list
var taskListCmd = &cobra.Command{
	Use:   "list <board>",
	Short: "List a board's tasks",
	Long: `List a board's tasks.

Only tasks admitted by the board's filter are shown; see 'tb filter'.
Use --all to ignore the filter for one listing.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskList,
}

var (
	taskListJSON   bool
	taskListAll    bool
	taskListFilter string
)

// task add
var taskAddCmd = &cobra.Command{
	Use:   "add <board> <name>",
	Short: "Add a task to a board",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAdd,
}

// task done
var taskDoneCmd = &cobra.Command{
	Use:   "done <board> <id>...",
	Short: "Mark tasks as completed",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskDone,
}

// task undone
var taskUndoneCmd = &cobra.Command{
	Use:   "undone <board> <id>...",
	Short: "Mark tasks as not completed",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskUndone,
}

// task edit
var taskEditCmd = &cobra.Command{
	Use:   "edit <board> <id>",
	Short: "Edit a task's fields",
	Long: `Edit a task's fields.

Only the flags you pass are sent; everything else is left unchanged.`,
	Args: cobra.ExactArgs(2),
	RunE: runTaskEdit,
}

var (
	taskEditName        string
	taskEditDescription string
	taskEditDue         string
	taskEditClearDue    bool
)

// task rm
var taskRemoveCmd = &cobra.Command{
	Use:   "rm <board> <id>...",
	Short: "Delete tasks",
	Aliases: []string{
		"remove",
	},
	Args: cobra.MinimumNArgs(2),
	RunE: runTaskRemove,
}

var taskRemoveYes bool

// task move
var taskMoveCmd = &cobra.Command{
	Use:   "move <board> <id>...",
	Short: "Reorder a board's tasks",
	Long: `Reorder a board's tasks.

List task ids in the desired order. Tasks you omit keep their relative
order after the ones you list. The new order shows immediately; position
updates are sent in the background and converge on the next listing.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTaskMove,
}

// task show
var taskShowCmd = &cobra.Command{
	Use:   "show <board> <id>",
	Short: "Show a task in detail",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskShow,
}

var taskShowJSON bool

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd, taskAddCmd, taskDoneCmd, taskUndoneCmd,
		taskEditCmd, taskRemoveCmd, taskMoveCmd, taskShowCmd)

	taskListCmd.Flags().BoolVar(&taskListJSON, "json", false, "Output as JSON")
	taskListCmd.Flags().BoolVar(&taskListAll, "all", false, "Ignore the board's filter")
	taskListCmd.Flags().StringVar(&taskListFilter, "filter", "", "Override the board's filter for this listing (all, completed, incomplete)")

	taskEditCmd.Flags().StringVar(&taskEditName, "name", "", "New name")
	taskEditCmd.Flags().StringVar(&taskEditDescription, "description", "", "New description")
	taskEditCmd.Flags().StringVar(&taskEditDescription, "desc", "", "New description")
	taskEditCmd.Flags().StringVar(&taskEditDue, "due", "", "New due date (YYYY-MM-DD)")
	taskEditCmd.Flags().BoolVar(&taskEditClearDue, "clear-due", false, "Remove the due date")

	taskRemoveCmd.Flags().BoolVarP(&taskRemoveYes, "yes", "y", false, "Skip the confirmation prompt")
	taskShowCmd.Flags().BoolVar(&taskShowJSON, "json", false, "Output as JSON")
}

func runTaskList(cmd *cobra.Command, args []string) error {
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
	if err := a.cache.FetchTasksForBoard(cmd.Context(), b.ID); err != nil {
		return err
	}

	filter := a.cache.Filter(b.ID)
	if taskListAll {
		filter = board.FilterAll
	} else if taskListFilter != "" {
		filter, err = board.ParseFilter(taskListFilter)
		if err != nil {
			return err
		}
	}

	tasks := board.FilterTasks(a.cache.TasksForBoard(b.ID), filter)
	if taskListJSON {
		return encodeJSONToStdout(tasks)
	}
	printTaskTable(b, tasks, filter, time.Now())
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
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
	created, err := a.cache.AddTask(cmd.Context(), b.ID, args[1])
	if err != nil {
		return err
	}
	printSuccess("Added task %q (id %d) to board %q", created.Name, created.ID, b.Name)
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	return setTasksCompletion(cmd, args, true)
}

func runTaskUndone(cmd *cobra.Command, args []string) error {
	return setTasksCompletion(cmd, args, false)
}

func setTasksCompletion(cmd *cobra.Command, args []string, completed bool) error {
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
	if err := a.cache.FetchTasksForBoard(cmd.Context(), b.ID); err != nil {
		return err
	}

	for _, arg := range args[1:] {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("task id must be a number, got %q", arg)
		}
		if err := a.cache.UpdateTaskStatus(cmd.Context(), id, b.ID, completed); err != nil {
			return fmt.Errorf("task %d: %w", id, err)
		}
		if completed {
			printSuccess("Completed task %d", id)
		} else {
			printSuccess("Reopened task %d", id)
		}
	}
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
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
	task, err := a.resolveTask(cmd.Context(), b, args[1])
	if err != nil {
		return err
	}

	var patch board.TaskPatch
	if cmd.Flags().Changed("name") {
		patch.Name = board.StringPtr(taskEditName)
	}
	if cmd.Flags().Changed("description") || cmd.Flags().Changed("desc") {
		patch.Description = board.StringPtr(taskEditDescription)
	}
	if taskEditClearDue {
		patch.DueDate = board.StringPtr("")
	} else if cmd.Flags().Changed("due") {
		if _, err := time.Parse("2006-01-02", taskEditDue); err != nil {
			return fmt.Errorf("due date must be YYYY-MM-DD, got %q", taskEditDue)
		}
		patch.DueDate = board.StringPtr(taskEditDue)
	}

	if patch.IsEmpty() {
		return fmt.Errorf("nothing to change; pass --name, --description, --due, or --clear-due")
	}
	if err := a.cache.UpdateTask(cmd.Context(), task.ID, b.ID, patch); err != nil {
		return err
	}
	printSuccess("Updated task %d", task.ID)
	return nil
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
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
	if err := a.cache.FetchTasksForBoard(cmd.Context(), b.ID); err != nil {
		return err
	}

	if !taskRemoveYes {
		ok, err := confirmPrompt(fmt.Sprintf("Delete %d task(s) from board %q?", len(args)-1, b.Name))
		if err != nil {
			return err
		}
		if !ok {
			printSuccess("Aborted")
			return nil
		}
	}

	for _, arg := range args[1:] {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("task id must be a number, got %q", arg)
		}
		if err := a.cache.DeleteTask(cmd.Context(), id, b.ID); err != nil {
			return fmt.Errorf("task %d: %w", id, err)
		}
		printSuccess("Deleted task %d", id)
	}
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
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
	if err := a.cache.FetchTasksForBoard(cmd.Context(), b.ID); err != nil {
		return err
	}

	ids := make([]int, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("task id must be a number, got %q", arg)
		}
		ids = append(ids, id)
	}

	if err := a.cache.ReorderTasks(cmd.Context(), b.ID, ids); err != nil {
		return err
	}
	printTaskTable(b, a.cache.TasksForBoard(b.ID), board.FilterAll, time.Now())
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
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
	task, err := a.resolveTask(cmd.Context(), b, args[1])
	if err != nil {
		return err
	}

	if taskShowJSON {
		return encodeJSONToStdout(task)
	}
	printTaskDetail(b, task, time.Now())
	return nil
}
