package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"taskboard/api"
)

var (
	// ErrEmptyBoardName rejects board creation or rename with a blank name
	// before any request is sent.
	ErrEmptyBoardName = errors.New("board name must not be empty")

	// ErrEmptyTaskName rejects task creation with a blank name before any
	// request is sent.
	ErrEmptyTaskName = errors.New("task name must not be empty")

	// ErrUnknownBoard means the target board is not in the cache.
	ErrUnknownBoard = errors.New("board not found")

	// ErrUnknownTask means the target task is not in the cache.
	ErrUnknownTask = errors.New("task not found")
)

// Task creation defaults sent by the web client.
const (
	defaultTimeReductionAmount = 30
	defaultTimeReductionPeriod = "daily"
)

// Cache mirrors the session user's boards and tasks.
//
// Every task in the cache references a board in the cache: deleting a board
// removes its tasks in the same state transition, and adding a task
// requires its board to be cached first.
type Cache struct {
	api     *api.Client
	filters *FilterStore
	logf    func(format string, args ...any)

	mu     sync.Mutex
	boards []Board
	tasks  []Task
}

// NewCache creates an empty cache backed by client. Filter state persists
// through filters; a nil logf logs best-effort failures to stderr.
func NewCache(client *api.Client, filters *FilterStore, logf func(format string, args ...any)) *Cache {
	if logf == nil {
		logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Cache{api: client, filters: filters, logf: logf}
}

// Boards returns the cached boards in server order.
func (c *Cache) Boards() []Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Board, len(c.boards))
	copy(result, c.boards)
	return result
}

// BoardByID returns the cached board with the given id.
func (c *Cache) BoardByID(id int) (Board, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.boards {
		if b.ID == id {
			return b, true
		}
	}
	return Board{}, false
}

// BoardByName returns the cached board whose name matches, trimmed and
// case-insensitive. Reports false when no board or several boards match.
func (c *Cache) BoardByName(name string) (Board, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	c.mu.Lock()
	defer c.mu.Unlock()

	var found Board
	matches := 0
	for _, b := range c.boards {
		if strings.ToLower(strings.TrimSpace(b.Name)) == want {
			found = b
			matches++
		}
	}
	if matches != 1 {
		return Board{}, false
	}
	return found, true
}

// Tasks returns all cached tasks in array order.
func (c *Cache) Tasks() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Task, len(c.tasks))
	copy(result, c.tasks)
	return result
}

// TasksForBoard returns the board's cached tasks in array order. Array
// order is the display order; the stale Position field is never consulted.
func (c *Cache) TasksForBoard(boardID int) []Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasksForBoardLocked(boardID)
}

func (c *Cache) tasksForBoardLocked(boardID int) []Task {
	result := make([]Task, 0)
	for _, task := range c.tasks {
		if task.BoardID == boardID {
			result = append(result, task)
		}
	}
	return result
}

// VisibleTasks returns the board's tasks admitted by its persisted filter.
func (c *Cache) VisibleTasks(boardID int) []Task {
	return FilterTasks(c.TasksForBoard(boardID), c.Filter(boardID))
}

// Filter returns the board's active filter.
func (c *Cache) Filter(boardID int) Filter {
	if c.filters == nil {
		return FilterAll
	}
	return c.filters.Get(boardID)
}

// SetFilter changes and immediately persists the board's active filter.
func (c *Cache) SetFilter(boardID int, filter Filter) error {
	if !filter.IsValid() {
		return fmt.Errorf("invalid filter %q", string(filter))
	}
	if c.filters == nil {
		return nil
	}
	return c.filters.Set(boardID, filter)
}

// FetchBoards replaces the cached boards wholesale with the server's list.
// Tasks whose board disappeared server-side are dropped in the same update.
func (c *Cache) FetchBoards(ctx context.Context) error {
	var boards []Board
	if err := c.api.Request(ctx, http.MethodGet, api.PathBoards, nil, &boards); err != nil {
		return api.Displayable(err, "could not load boards")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards = boards
	known := make(map[int]bool, len(boards))
	for _, b := range boards {
		known[b.ID] = true
	}
	kept := c.tasks[:0]
	for _, task := range c.tasks {
		if known[task.BoardID] {
			kept = append(kept, task)
		}
	}
	c.tasks = kept
	return nil
}

type boardParams struct {
	Board map[string]any `json:"board"`
}

// AddBoard creates a board and appends the server's version to the cache.
// There is no optimistic placeholder: the id is unknown until the server
// responds.
func (c *Cache) AddBoard(ctx context.Context, name string) (Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Board{}, ErrEmptyBoardName
	}

	var created Board
	payload := boardParams{Board: map[string]any{"name": name}}
	if err := c.api.Request(ctx, http.MethodPost, api.PathBoards, payload, &created); err != nil {
		return Board{}, api.Displayable(err, "could not create the board")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards = append(c.boards, created)
	return created, nil
}

// RenameBoard renames a board, updating the cache only after the server
// confirms. Rename is reconciliation-only: the name may be shown elsewhere,
// and an optimistic rename would flicker on failure.
func (c *Cache) RenameBoard(ctx context.Context, id int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyBoardName
	}
	if _, ok := c.BoardByID(id); !ok {
		return ErrUnknownBoard
	}

	var updated Board
	payload := boardParams{Board: map[string]any{"name": name}}
	if err := c.api.Request(ctx, http.MethodPatch, api.BoardPath(id), payload, &updated); err != nil {
		return api.Displayable(err, "could not rename the board")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.boards {
		if c.boards[i].ID == id {
			c.boards[i].Name = updated.Name
			return nil
		}
	}
	// The board vanished while the request was in flight; drop the result.
	return nil
}

// DeleteBoard deletes a board and removes it and every one of its tasks
// from the cache in a single state transition.
func (c *Cache) DeleteBoard(ctx context.Context, id int) error {
	if _, ok := c.BoardByID(id); !ok {
		return ErrUnknownBoard
	}

	if err := c.api.Request(ctx, http.MethodDelete, api.BoardPath(id), nil, nil); err != nil {
		return api.Displayable(err, "could not delete the board")
	}

	c.mu.Lock()
	boards := c.boards[:0]
	for _, b := range c.boards {
		if b.ID != id {
			boards = append(boards, b)
		}
	}
	c.boards = boards
	tasks := c.tasks[:0]
	for _, task := range c.tasks {
		if task.BoardID != id {
			tasks = append(tasks, task)
		}
	}
	c.tasks = tasks
	c.mu.Unlock()

	if c.filters != nil {
		if err := c.filters.Forget(id); err != nil {
			c.logf("forget filter for board %d: %v", id, err)
		}
	}
	return nil
}

// FetchTasksForBoard fetches a board's tasks, annotates each with the board
// id, and replaces that board's slice of the cache. Other boards' tasks are
// untouched.
func (c *Cache) FetchTasksForBoard(ctx context.Context, boardID int) error {
	if _, ok := c.BoardByID(boardID); !ok {
		return ErrUnknownBoard
	}

	var fetched []Task
	if err := c.api.Request(ctx, http.MethodGet, api.TasksPath(boardID), nil, &fetched); err != nil {
		return api.Displayable(err, "could not load tasks")
	}
	for i := range fetched {
		fetched[i].BoardID = boardID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]Task, 0, len(c.tasks)+len(fetched))
	for _, task := range c.tasks {
		if task.BoardID != boardID {
			kept = append(kept, task)
		}
	}
	c.tasks = append(kept, fetched...)
	return nil
}

// FetchAllTasks fetches every cached board's tasks.
func (c *Cache) FetchAllTasks(ctx context.Context) error {
	for _, b := range c.Boards() {
		if err := c.FetchTasksForBoard(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

type taskParams struct {
	Task map[string]any `json:"task"`
}

// AddTask creates a task on a board with the client's creation defaults and
// appends the server's version to the cache.
func (c *Cache) AddTask(ctx context.Context, boardID int, name string) (Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Task{}, ErrEmptyTaskName
	}
	if _, ok := c.BoardByID(boardID); !ok {
		return Task{}, ErrUnknownBoard
	}

	payload := taskParams{Task: map[string]any{
		"name":                  name,
		"description":           "",
		"due_date":              "",
		"board_id":              boardID,
		"is_completed":          false,
		"time_reduction_amount": defaultTimeReductionAmount,
		"time_reduction_period": defaultTimeReductionPeriod,
	}}
	var created Task
	if err := c.api.Request(ctx, http.MethodPost, api.TasksPath(boardID), payload, &created); err != nil {
		return Task{}, api.Displayable(err, "could not create the task")
	}
	created.BoardID = boardID

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, created)
	return created, nil
}

// UpdateTask applies a partial update and merges the server's response into
// the cached task. A response for a task that has since left the cache is
// discarded rather than resurrected.
func (c *Cache) UpdateTask(ctx context.Context, id, boardID int, patch TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if !c.taskCached(id, boardID) {
		return ErrUnknownTask
	}

	var updated Task
	payload := taskParams{Task: patch.params()}
	if err := c.api.Request(ctx, http.MethodPatch, api.TaskPath(boardID, id), payload, &updated); err != nil {
		return api.Displayable(err, "could not update the task")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID == id && c.tasks[i].BoardID == boardID {
			c.tasks[i].Name = updated.Name
			c.tasks[i].Description = updated.Description
			c.tasks[i].DueDate = updated.DueDate
			c.tasks[i].IsCompleted = updated.IsCompleted
			return nil
		}
	}
	c.logf("discarding update for task %d: no longer cached", id)
	return nil
}

// UpdateTaskStatus flips the completion flag, used by checkbox controls.
func (c *Cache) UpdateTaskStatus(ctx context.Context, id, boardID int, isCompleted bool) error {
	return c.UpdateTask(ctx, id, boardID, TaskPatch{IsCompleted: BoolPtr(isCompleted)})
}

// DeleteTask deletes a task and removes it from the cache on success.
func (c *Cache) DeleteTask(ctx context.Context, id, boardID int) error {
	if !c.taskCached(id, boardID) {
		return ErrUnknownTask
	}

	if err := c.api.Request(ctx, http.MethodDelete, api.TaskPath(boardID, id), nil, nil); err != nil {
		return api.Displayable(err, "could not delete the task")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tasks := c.tasks[:0]
	for _, task := range c.tasks {
		if !(task.ID == id && task.BoardID == boardID) {
			tasks = append(tasks, task)
		}
	}
	c.tasks = tasks
	return nil
}

// ReorderTasks applies a drag-style reorder of one board's tasks.
//
// The local cache is updated synchronously before any network call is
// dispatched, so the new order is visible immediately and later user
// actions see it. Positions are derived from the new array indexes, never
// from previously cached position values. One PATCH per task then carries
// its zero-based position, issued in parallel; individual failures are
// logged and left to converge on the next fetch.
func (c *Cache) ReorderTasks(ctx context.Context, boardID int, orderedTaskIDs []int) error {
	c.mu.Lock()
	known := false
	for _, b := range c.boards {
		if b.ID == boardID {
			known = true
			break
		}
	}
	if !known {
		c.mu.Unlock()
		return ErrUnknownBoard
	}
	current := c.tasksForBoardLocked(boardID)
	if len(current) == 0 {
		c.mu.Unlock()
		return nil
	}

	byID := make(map[int]Task, len(current))
	for _, task := range current {
		byID[task.ID] = task
	}

	reordered := make([]Task, 0, len(current))
	seen := make(map[int]bool, len(orderedTaskIDs))
	for _, id := range orderedTaskIDs {
		task, ok := byID[id]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("task %d is not on this board", id)
		}
		if seen[id] {
			c.mu.Unlock()
			return fmt.Errorf("task %d appears twice in the new order", id)
		}
		seen[id] = true
		reordered = append(reordered, task)
	}
	// Tasks omitted from the new order keep their relative order at the end.
	for _, task := range current {
		if !seen[task.ID] {
			reordered = append(reordered, task)
		}
	}
	for i := range reordered {
		reordered[i].Position = i
	}

	// Splice the reordered tasks back into the slots this board's tasks
	// occupied; other boards' array order is untouched.
	next := 0
	for i := range c.tasks {
		if c.tasks[i].BoardID == boardID {
			c.tasks[i] = reordered[next]
			next++
		}
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for index, task := range reordered {
		wg.Add(1)
		go func(taskID, position int) {
			defer wg.Done()
			payload := taskParams{Task: TaskPatch{Position: IntPtr(position)}.params()}
			if err := c.api.Request(ctx, http.MethodPatch, api.TaskPath(boardID, taskID), payload, nil); err != nil {
				c.logf("reorder: position update for task %d failed: %v", taskID, err)
			}
		}(task.ID, index)
	}
	wg.Wait()
	return nil
}

func (c *Cache) taskCached(id, boardID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, task := range c.tasks {
		if task.ID == id && task.BoardID == boardID {
			return true
		}
	}
	return false
}
