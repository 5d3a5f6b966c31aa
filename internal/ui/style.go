package ui

import (
	"os"

	"golang.org/x/term"
)

const (
	ansiBold  = "\x1b[1m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiFaint = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// Checkbox renders a completion marker for a task.
func Checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// Done renders a value faint, marking completed tasks in lists.
func Done(value string) string {
	if !ansiEnabled() {
		return value
	}
	return ansiFaint + value + ansiReset
}

// Emphasize renders a value bold.
func Emphasize(value string) string {
	if !ansiEnabled() {
		return value
	}
	return ansiBold + value + ansiReset
}

// Overdue renders a due date red.
func Overdue(value string) string {
	if !ansiEnabled() {
		return value
	}
	return ansiRed + value + ansiReset
}

// Success renders a value green.
func Success(value string) string {
	if !ansiEnabled() {
		return value
	}
	return ansiGreen + value + ansiReset
}

func ansiEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
