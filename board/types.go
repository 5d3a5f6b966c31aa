// Package board maintains the client-side mirror of boards and tasks.
//
// The cache is the authority the UI renders from. Most mutations are
// reconciliation-only: the cache changes after the server confirms, with the
// server's response as the new truth. Reordering is the one optimistic
// operation: the drop is applied locally before any network call so the UI
// reflects it instantly, and the per-task position updates converge
// best-effort. This asymmetry is deliberate: a failed rename would flicker
// a name shown elsewhere, while a failed reorder is recoverable on the next
// fetch.
package board

import "fmt"

// Board is a named task list owned by a user.
type Board struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Task is a unit of work belonging to exactly one board.
//
// BoardID is annotated client-side: the server's nested-resource responses
// do not carry it.
type Task struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	IsCompleted bool   `json:"is_completed"`
	Position    int    `json:"position"`
	BoardID     int    `json:"-"`
}

// Filter selects which of a board's tasks are visible.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterCompleted  Filter = "completed"
	FilterIncomplete Filter = "incomplete"
)

// ValidFilters returns all valid filter values.
func ValidFilters() []Filter {
	return []Filter{FilterAll, FilterCompleted, FilterIncomplete}
}

// IsValid returns true if the filter is a known valid value.
func (f Filter) IsValid() bool {
	for _, valid := range ValidFilters() {
		if f == valid {
			return true
		}
	}
	return false
}

// ParseFilter converts a user-supplied string into a Filter.
func ParseFilter(value string) (Filter, error) {
	filter := Filter(value)
	if !filter.IsValid() {
		return "", fmt.Errorf("invalid filter %q (valid: all, completed, incomplete)", value)
	}
	return filter, nil
}

// FilterTasks returns the subset of tasks the filter admits. Pure: the
// input slice is never mutated.
func FilterTasks(tasks []Task, filter Filter) []Task {
	switch filter {
	case FilterCompleted:
		return selectTasks(tasks, func(t Task) bool { return t.IsCompleted })
	case FilterIncomplete:
		return selectTasks(tasks, func(t Task) bool { return !t.IsCompleted })
	default:
		result := make([]Task, len(tasks))
		copy(result, tasks)
		return result
	}
}

func selectTasks(tasks []Task, keep func(Task) bool) []Task {
	result := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if keep(task) {
			result = append(result, task)
		}
	}
	return result
}
