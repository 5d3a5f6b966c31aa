package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"taskboard/api"
	"taskboard/credstore"
)

func newTestCache(t *testing.T, handler http.Handler) *Cache {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := credstore.New(t.TempDir())
	err := store.SetCredential(credstore.Credential{AccessToken: "T0", Client: "C0", UID: "U0"}, 7)
	if err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	client := api.NewClient(server.URL, store)
	filters := NewFilterStore(t.TempDir())
	return NewCache(client, filters, func(format string, args ...any) {})
}

func seedCache(c *Cache, boards []Board, tasks []Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards = boards
	c.tasks = tasks
}

func writeJSON(t *testing.T, w http.ResponseWriter, value any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(value); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func taskIDs(tasks []Task) []int {
	ids := make([]int, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFetchBoardsReplacesWholesale(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != api.PathBoards {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, []Board{{ID: 1, Name: "Work"}, {ID: 2, Name: "Home"}})
	}))
	seedCache(cache, []Board{{ID: 9, Name: "Stale"}}, []Task{{ID: 50, Name: "orphan", BoardID: 9}})

	if err := cache.FetchBoards(context.Background()); err != nil {
		t.Fatalf("FetchBoards: %v", err)
	}

	boards := cache.Boards()
	if len(boards) != 2 || boards[0].ID != 1 || boards[1].ID != 2 {
		t.Fatalf("boards not replaced: %+v", boards)
	}
	if tasks := cache.Tasks(); len(tasks) != 0 {
		t.Fatalf("task of the vanished board survived: %+v", tasks)
	}
}

func TestAddBoardSendsWrappedNameAndAppendsServerVersion(t *testing.T) {
	var body struct {
		Board struct {
			Name string `json:"name"`
		} `json:"board"`
	}
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != api.PathBoards {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(t, w, Board{ID: 7, Name: body.Board.Name})
	}))

	created, err := cache.AddBoard(context.Background(), "Groceries")
	if err != nil {
		t.Fatalf("AddBoard: %v", err)
	}
	if body.Board.Name != "Groceries" {
		t.Fatalf("request body name = %q", body.Board.Name)
	}
	if created.ID != 7 || created.Name != "Groceries" {
		t.Fatalf("created = %+v", created)
	}

	boards := cache.Boards()
	if len(boards) != 1 || boards[0].ID != 7 {
		t.Fatalf("board not cached: %+v", boards)
	}
}

func TestAddBoardEmptyNameNoRequest(t *testing.T) {
	requests := 0
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	if _, err := cache.AddBoard(context.Background(), "   "); !errors.Is(err, ErrEmptyBoardName) {
		t.Fatalf("err = %v, want ErrEmptyBoardName", err)
	}
	if requests != 0 {
		t.Fatalf("empty name issued %d requests", requests)
	}
}

func TestRenameBoardUpdatesAfterConfirmation(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != api.BoardPath(3) {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, Board{ID: 3, Name: "Renamed"})
	}))
	seedCache(cache, []Board{{ID: 3, Name: "Old"}}, nil)

	if err := cache.RenameBoard(context.Background(), 3, "Renamed"); err != nil {
		t.Fatalf("RenameBoard: %v", err)
	}
	if got := cache.Boards()[0].Name; got != "Renamed" {
		t.Fatalf("name = %q", got)
	}
}

func TestRenameBoardFailureLeavesCacheUntouched(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(t, w, map[string]string{"message": "boom"})
	}))
	seedCache(cache, []Board{{ID: 3, Name: "Old"}}, nil)

	if err := cache.RenameBoard(context.Background(), 3, "New"); err == nil {
		t.Fatal("expected error")
	}
	if got := cache.Boards()[0].Name; got != "Old" {
		t.Fatalf("name changed optimistically to %q", got)
	}
}

func TestDeleteBoardCascadesTasksInOneTransition(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != api.BoardPath(1) {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, map[string]string{"message": "deleted"})
	}))
	seedCache(cache,
		[]Board{{ID: 1, Name: "Doomed"}, {ID: 2, Name: "Kept"}},
		[]Task{
			{ID: 10, Name: "a", BoardID: 1},
			{ID: 11, Name: "b", BoardID: 2},
			{ID: 12, Name: "c", BoardID: 1},
		})
	if err := cache.SetFilter(1, FilterCompleted); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	if err := cache.DeleteBoard(context.Background(), 1); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}

	if boards := cache.Boards(); len(boards) != 1 || boards[0].ID != 2 {
		t.Fatalf("boards = %+v", boards)
	}
	tasks := cache.Tasks()
	if len(tasks) != 1 || tasks[0].ID != 11 {
		t.Fatalf("tasks of the deleted board survived: %+v", tasks)
	}
	if got := cache.Filter(1); got != FilterAll {
		t.Fatalf("filter of the deleted board survived: %q", got)
	}
}

func TestDeleteBoardFailureKeepsEverything(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(t, w, map[string]string{"message": "boom"})
	}))
	seedCache(cache, []Board{{ID: 1, Name: "Safe"}}, []Task{{ID: 10, BoardID: 1}})

	if err := cache.DeleteBoard(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.Boards()) != 1 || len(cache.Tasks()) != 1 {
		t.Fatal("cache changed on failed delete")
	}
}

func TestFetchTasksAnnotatesBoardID(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.TasksPath(4) {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(t, w, []Task{{ID: 20, Name: "first"}, {ID: 21, Name: "second"}})
	}))
	seedCache(cache,
		[]Board{{ID: 4, Name: "Mine"}, {ID: 5, Name: "Other"}},
		[]Task{{ID: 30, Name: "elsewhere", BoardID: 5}})

	if err := cache.FetchTasksForBoard(context.Background(), 4); err != nil {
		t.Fatalf("FetchTasksForBoard: %v", err)
	}
	for _, task := range cache.TasksForBoard(4) {
		if task.BoardID != 4 {
			t.Fatalf("task %d missing board annotation: %+v", task.ID, task)
		}
	}
	if other := cache.TasksForBoard(5); len(other) != 1 || other[0].ID != 30 {
		t.Fatalf("other board's tasks disturbed: %+v", other)
	}
}

func TestAddTaskSendsCreationDefaults(t *testing.T) {
	var body struct {
		Task map[string]any `json:"task"`
	}
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != api.TasksPath(4) {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(t, w, Task{ID: 99, Name: "Buy milk"})
	}))
	seedCache(cache, []Board{{ID: 4, Name: "Groceries"}}, nil)

	created, err := cache.AddTask(context.Background(), 4, "Buy milk")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if created.BoardID != 4 {
		t.Fatalf("created.BoardID = %d", created.BoardID)
	}

	want := map[string]any{
		"name":                  "Buy milk",
		"description":           "",
		"due_date":              "",
		"board_id":              float64(4),
		"is_completed":          false,
		"time_reduction_amount": float64(30),
		"time_reduction_period": "daily",
	}
	for key, value := range want {
		if body.Task[key] != value {
			t.Errorf("task[%q] = %v, want %v", key, body.Task[key], value)
		}
	}
	if len(body.Task) != len(want) {
		t.Errorf("unexpected extra fields in body: %v", body.Task)
	}
}

func TestAddTaskUnknownBoard(t *testing.T) {
	requests := 0
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	if _, err := cache.AddTask(context.Background(), 42, "x"); !errors.Is(err, ErrUnknownBoard) {
		t.Fatalf("err = %v, want ErrUnknownBoard", err)
	}
	if requests != 0 {
		t.Fatalf("unknown board issued %d requests", requests)
	}
}

func TestUpdateTaskSendsOnlySetFields(t *testing.T) {
	var body struct {
		Task map[string]any `json:"task"`
	}
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != api.TaskPath(4, 20) {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(t, w, Task{ID: 20, Name: "Renamed", Description: "kept", IsCompleted: false})
	}))
	seedCache(cache, []Board{{ID: 4}}, []Task{{ID: 20, Name: "Old", Description: "kept", BoardID: 4}})

	patch := TaskPatch{Name: StringPtr("Renamed")}
	if err := cache.UpdateTask(context.Background(), 20, 4, patch); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	if len(body.Task) != 1 || body.Task["name"] != "Renamed" {
		t.Fatalf("body carried unset fields: %v", body.Task)
	}
	task := cache.TasksForBoard(4)[0]
	if task.Name != "Renamed" || task.Description != "kept" {
		t.Fatalf("merge wrong: %+v", task)
	}
}

func TestUpdateTaskStaleResponseDiscarded(t *testing.T) {
	// The handler evicts the task while the request is in flight, so the
	// pre-flight check passes but the merge finds it gone.
	var cache *Cache
	cache = newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seedCache(cache, []Board{{ID: 4}}, nil)
		writeJSON(t, w, Task{ID: 20, Name: "Ghost"})
	}))
	seedCache(cache, []Board{{ID: 4}}, []Task{{ID: 20, Name: "Old", BoardID: 4}})

	if err := cache.UpdateTask(context.Background(), 20, 4, TaskPatch{Name: StringPtr("New")}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if tasks := cache.Tasks(); len(tasks) != 0 {
		t.Fatalf("stale response resurrected a task: %+v", tasks)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	var body struct {
		Task map[string]any `json:"task"`
	}
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeJSON(t, w, Task{ID: 20, Name: "t", IsCompleted: true})
	}))
	seedCache(cache, []Board{{ID: 4}}, []Task{{ID: 20, Name: "t", BoardID: 4}})

	if err := cache.UpdateTaskStatus(context.Background(), 20, 4, true); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if len(body.Task) != 1 || body.Task["is_completed"] != true {
		t.Fatalf("body = %v", body.Task)
	}
	if !cache.TasksForBoard(4)[0].IsCompleted {
		t.Fatal("completion flag not merged")
	}
}

func TestDeleteTaskRemovesOnSuccessOnly(t *testing.T) {
	status := http.StatusInternalServerError
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		writeJSON(t, w, map[string]string{"message": "x"})
	}))
	seedCache(cache, []Board{{ID: 4}}, []Task{{ID: 20, BoardID: 4}})

	if err := cache.DeleteTask(context.Background(), 20, 4); err == nil {
		t.Fatal("expected error")
	}
	if len(cache.Tasks()) != 1 {
		t.Fatal("failed delete removed the task")
	}

	status = http.StatusOK
	if err := cache.DeleteTask(context.Background(), 20, 4); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if len(cache.Tasks()) != 0 {
		t.Fatal("task survived successful delete")
	}
}

func TestReorderTasksAppliesLocallyBeforeNetwork(t *testing.T) {
	var mu sync.Mutex
	positions := map[int]int{}
	var orderAtFirstRequest []int

	var cache *Cache
	cache = newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Task struct {
				Position *int `json:"position"`
			} `json:"task"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		var taskID int
		if _, err := fmt.Sscanf(r.URL.Path, "/boards/7/tasks/%d", &taskID); err != nil {
			t.Errorf("unexpected path %s: %v", r.URL.Path, err)
		}
		if body.Task.Position == nil {
			t.Errorf("task %d: position missing from body", taskID)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		mu.Lock()
		positions[taskID] = *body.Task.Position
		if orderAtFirstRequest == nil {
			orderAtFirstRequest = taskIDs(cache.TasksForBoard(7))
		}
		mu.Unlock()
		writeJSON(t, w, map[string]string{"message": "ok"})
	}))
	seedCache(cache,
		[]Board{{ID: 7}, {ID: 8}},
		[]Task{
			{ID: 1, Name: "a", Position: 0, BoardID: 7},
			{ID: 40, Name: "other", Position: 0, BoardID: 8},
			{ID: 2, Name: "b", Position: 1, BoardID: 7},
			{ID: 3, Name: "c", Position: 2, BoardID: 7},
		})

	if err := cache.ReorderTasks(context.Background(), 7, []int{3, 1, 2}); err != nil {
		t.Fatalf("ReorderTasks: %v", err)
	}

	if !equalInts(orderAtFirstRequest, []int{3, 1, 2}) {
		t.Fatalf("cache order at first request = %v, want local reorder applied first", orderAtFirstRequest)
	}
	want := map[int]int{3: 0, 1: 1, 2: 2}
	for id, pos := range want {
		if positions[id] != pos {
			t.Errorf("task %d sent position %d, want %d", id, positions[id], pos)
		}
	}
	if len(positions) != 3 {
		t.Errorf("sent %d position updates, want 3", len(positions))
	}

	reordered := cache.TasksForBoard(7)
	if !equalInts(taskIDs(reordered), []int{3, 1, 2}) {
		t.Fatalf("final order = %v", taskIDs(reordered))
	}
	for i, task := range reordered {
		if task.Position != i {
			t.Errorf("task %d cached position = %d, want %d", task.ID, task.Position, i)
		}
	}
	if other := cache.TasksForBoard(8); len(other) != 1 || other[0].ID != 40 {
		t.Fatalf("other board's tasks disturbed: %+v", other)
	}
}

func TestReorderTasksPositionsDeriveFromNewOrderNotStale(t *testing.T) {
	var mu sync.Mutex
	positions := map[int]int{}
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Task struct {
				Position int `json:"position"`
			} `json:"task"`
		}
		var taskID int
		fmt.Sscanf(r.URL.Path, "/boards/7/tasks/%d", &taskID)
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		positions[taskID] = body.Task.Position
		mu.Unlock()
		writeJSON(t, w, map[string]string{"message": "ok"})
	}))
	// Stale position values deliberately disagree with array order.
	seedCache(cache,
		[]Board{{ID: 7}},
		[]Task{
			{ID: 1, Position: 90, BoardID: 7},
			{ID: 2, Position: 5, BoardID: 7},
		})

	if err := cache.ReorderTasks(context.Background(), 7, []int{2, 1}); err != nil {
		t.Fatalf("ReorderTasks: %v", err)
	}
	if positions[2] != 0 || positions[1] != 1 {
		t.Fatalf("positions = %v, want derived indexes 0 and 1", positions)
	}
}

func TestReorderTasksFailuresDoNotRollBack(t *testing.T) {
	var logged []string
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(t, w, map[string]string{"message": "boom"})
	}))
	cache.logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}
	seedCache(cache, []Board{{ID: 7}}, []Task{
		{ID: 1, BoardID: 7},
		{ID: 2, BoardID: 7},
	})

	if err := cache.ReorderTasks(context.Background(), 7, []int{2, 1}); err != nil {
		t.Fatalf("ReorderTasks surfaced a per-task failure: %v", err)
	}
	if !equalInts(taskIDs(cache.TasksForBoard(7)), []int{2, 1}) {
		t.Fatal("failed position updates rolled back the local order")
	}
	if len(logged) != 2 {
		t.Fatalf("logged %d failures, want 2", len(logged))
	}
}

func TestReorderTasksRejectsForeignTask(t *testing.T) {
	requests := 0
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	seedCache(cache, []Board{{ID: 7}, {ID: 8}}, []Task{
		{ID: 1, BoardID: 7},
		{ID: 2, BoardID: 8},
	})

	if err := cache.ReorderTasks(context.Background(), 7, []int{2, 1}); err == nil {
		t.Fatal("expected an error for a task from another board")
	}
	if requests != 0 {
		t.Fatalf("invalid reorder issued %d requests", requests)
	}
}

func TestVisibleTasksHonorsPersistedFilter(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	seedCache(cache, []Board{{ID: 7}}, []Task{
		{ID: 1, IsCompleted: true, BoardID: 7},
		{ID: 2, IsCompleted: false, BoardID: 7},
	})

	if err := cache.SetFilter(7, FilterIncomplete); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	visible := cache.VisibleTasks(7)
	if len(visible) != 1 || visible[0].ID != 2 {
		t.Fatalf("visible = %+v", visible)
	}
	// The underlying cache still holds both.
	if len(cache.TasksForBoard(7)) != 2 {
		t.Fatal("filter mutated the cache")
	}
}

func TestBoardByName(t *testing.T) {
	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	seedCache(cache, []Board{
		{ID: 1, Name: "Groceries"},
		{ID: 2, Name: "Work"},
		{ID: 3, Name: "work"},
	}, nil)

	if b, ok := cache.BoardByName("  groceries "); !ok || b.ID != 1 {
		t.Fatalf("BoardByName(groceries) = %+v, %v", b, ok)
	}
	if _, ok := cache.BoardByName("work"); ok {
		t.Fatal("ambiguous name resolved")
	}
	if _, ok := cache.BoardByName("missing"); ok {
		t.Fatal("missing name resolved")
	}
}
