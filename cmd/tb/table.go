package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"taskboard/board"
	"taskboard/internal/markdown"
	"taskboard/internal/ui"
)

const taskDetailLineWidth = 80

// printTaskTable prints a board's tasks in display order.
func printTaskTable(b board.Board, tasks []board.Task, filter board.Filter, now time.Time) {
	if len(tasks) == 0 {
		if filter == board.FilterAll {
			fmt.Printf("No tasks on board %q.\n", b.Name)
		} else {
			fmt.Printf("No %s tasks on board %q.\n", filter, b.Name)
		}
		return
	}

	fmt.Print(formatTaskTable(tasks, now))
}

func formatTaskTable(tasks []board.Task, now time.Time) string {
	builder := ui.NewTableBuilder([]string{"", "ID", "NAME", "DUE"}, len(tasks))
	for _, task := range tasks {
		name := ui.TruncateCell(task.Name)
		if task.IsCompleted {
			name = ui.Done(name)
		}
		builder.AddRow([]string{
			ui.Checkbox(task.IsCompleted),
			strconv.Itoa(task.ID),
			name,
			ui.FormatDueDate(task.DueDate, task.IsCompleted, now),
		})
	}
	return builder.String()
}

// printTaskDetail prints one task in full.
func printTaskDetail(b board.Board, task board.Task, now time.Time) {
	status := "open"
	if task.IsCompleted {
		status = "completed"
	}

	fmt.Printf("ID:     %d\n", task.ID)
	fmt.Printf("Name:   %s\n", wordwrap.String(task.Name, taskDetailLineWidth))
	fmt.Printf("Board:  %s (id %d)\n", b.Name, b.ID)
	fmt.Printf("Status: %s\n", status)

	if task.DueDate != "" {
		fmt.Printf("Due:    %s\n", ui.FormatDueDate(task.DueDate, task.IsCompleted, now))
	}

	if strings.TrimSpace(task.Description) != "" {
		fmt.Printf("\nDescription:\n%s\n", markdown.Render(taskDetailLineWidth, task.Description))
	}
}
