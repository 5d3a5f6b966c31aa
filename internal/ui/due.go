package ui

import (
	"strings"
	"time"
)

// DueDateLayout is the wire format for task due dates.
const DueDateLayout = "2006-01-02"

// FormatDueDate renders a task due date for table output. Unset dates render
// as "-"; dates before today are marked overdue unless the task is done.
func FormatDueDate(dueDate string, completed bool, now time.Time) string {
	dueDate = strings.TrimSpace(dueDate)
	if dueDate == "" {
		return "-"
	}

	due, err := time.Parse(DueDateLayout, dueDate)
	if err != nil {
		// Unparseable values come straight from the server; show them as-is.
		return dueDate
	}

	if !completed && due.Before(now.Truncate(24*time.Hour)) {
		return Overdue(dueDate + " (overdue)")
	}
	return dueDate
}
