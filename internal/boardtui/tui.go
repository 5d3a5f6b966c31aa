// Package boardtui implements the interactive dashboard: a two-pane view
// of boards and their tasks backed by the shared cache.
package boardtui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"taskboard/board"
)

type focusPane int

const (
	focusBoards focusPane = iota
	focusTasks
)

type statusLevel int

const (
	statusNone statusLevel = iota
	statusInfo
	statusError
)

type model struct {
	ctx    context.Context
	cache  *board.Cache
	width  int
	height int
	focus  focusPane

	boardList list.Model
	taskList  list.Model

	selectedBoardID int
	status          string
	statusLevel     statusLevel
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, cache *board.Cache) error {
	if cache == nil {
		return fmt.Errorf("board cache is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	program := tea.NewProgram(newModel(ctx, cache), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func newModel(ctx context.Context, cache *board.Cache) model {
	boardList := list.New(nil, newBoardItemDelegate(), 0, 0)
	boardList.Title = "Boards"
	boardList.SetShowStatusBar(false)
	boardList.SetFilteringEnabled(false)
	boardList.SetShowHelp(false)
	boardList.SetShowPagination(false)

	taskList := list.New(nil, newTaskItemDelegate(), 0, 0)
	taskList.Title = "Tasks"
	taskList.SetShowStatusBar(false)
	taskList.SetFilteringEnabled(false)
	taskList.SetShowHelp(false)
	taskList.SetShowPagination(false)

	return model{
		ctx:       ctx,
		cache:     cache,
		focus:     focusBoards,
		boardList: boardList,
		taskList:  taskList,
	}
}

func (m model) Init() tea.Cmd {
	return m.loadBoardsCmd()
}

type boardsLoadedMsg struct {
	boards []board.Board
}

type tasksLoadedMsg struct {
	boardID int
	tasks   []board.Task
}

type taskToggledMsg struct {
	boardID int
}

type errMsg struct {
	err error
}

func (m model) loadBoardsCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.cache.FetchBoards(m.ctx); err != nil {
			return errMsg{err}
		}
		return boardsLoadedMsg{boards: m.cache.Boards()}
	}
}

func (m model) loadTasksCmd(boardID int) tea.Cmd {
	return func() tea.Msg {
		if err := m.cache.FetchTasksForBoard(m.ctx, boardID); err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{boardID: boardID, tasks: m.cache.VisibleTasks(boardID)}
	}
}

func (m model) toggleTaskCmd(task board.Task) tea.Cmd {
	return func() tea.Msg {
		if err := m.cache.UpdateTaskStatus(m.ctx, task.ID, task.BoardID, !task.IsCompleted); err != nil {
			return errMsg{err}
		}
		return taskToggledMsg{boardID: task.BoardID}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case boardsLoadedMsg:
		items := make([]list.Item, len(msg.boards))
		for i, b := range msg.boards {
			items[i] = boardItem{board: b, filter: m.cache.Filter(b.ID)}
		}
		m.boardList.SetItems(items)
		if len(msg.boards) > 0 {
			selected := msg.boards[m.boardList.Index()%len(msg.boards)]
			if m.selectedBoardID != selected.ID {
				m.selectedBoardID = selected.ID
				return m, m.loadTasksCmd(selected.ID)
			}
		}
		return m, nil

	case tasksLoadedMsg:
		if msg.boardID != m.selectedBoardID {
			// A slow load for a board the user has since left.
			return m, nil
		}
		items := make([]list.Item, len(msg.tasks))
		for i, task := range msg.tasks {
			items[i] = taskItem{task: task}
		}
		m.taskList.SetItems(items)
		return m, nil

	case taskToggledMsg:
		return m, m.loadTasksCmd(msg.boardID)

	case errMsg:
		m.status = msg.err.Error()
		m.statusLevel = statusError
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == focusBoards {
			m.focus = focusTasks
		} else {
			m.focus = focusBoards
		}
		return m, nil

	case "r":
		m.status = ""
		m.statusLevel = statusNone
		return m, m.loadBoardsCmd()

	case "f":
		if b, ok := m.selectedBoard(); ok {
			next := nextFilter(m.cache.Filter(b.ID))
			if err := m.cache.SetFilter(b.ID, next); err != nil {
				m.status = err.Error()
				m.statusLevel = statusError
				return m, nil
			}
			m.status = fmt.Sprintf("showing %s tasks", next)
			m.statusLevel = statusInfo
			return m, tea.Batch(m.loadBoardsCmd(), m.loadTasksCmd(b.ID))
		}
		return m, nil

	case "enter":
		if m.focus == focusBoards {
			if b, ok := m.selectedBoard(); ok {
				m.selectedBoardID = b.ID
				m.focus = focusTasks
				return m, m.loadTasksCmd(b.ID)
			}
		}
		return m, nil

	case " ", "space":
		if m.focus == focusTasks {
			if item, ok := m.taskList.SelectedItem().(taskItem); ok {
				return m, m.toggleTaskCmd(item.task)
			}
		}
		return m, nil

	case "K", "shift+up":
		return m.moveSelectedTask(-1)

	case "J", "shift+down":
		return m.moveSelectedTask(1)
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusBoards:
		before := m.boardList.Index()
		m.boardList, cmd = m.boardList.Update(msg)
		if m.boardList.Index() != before {
			if b, ok := m.selectedBoard(); ok {
				m.selectedBoardID = b.ID
				return m, tea.Batch(cmd, m.loadTasksCmd(b.ID))
			}
		}
	case focusTasks:
		m.taskList, cmd = m.taskList.Update(msg)
	}
	return m, cmd
}

// moveSelectedTask shifts the selected task by delta within its board and
// dispatches the reorder. The cache applies the new order before any
// network call, so the reload renders it immediately.
func (m model) moveSelectedTask(delta int) (tea.Model, tea.Cmd) {
	if m.focus != focusTasks {
		return m, nil
	}
	item, ok := m.taskList.SelectedItem().(taskItem)
	if !ok {
		return m, nil
	}

	tasks := m.cache.TasksForBoard(item.task.BoardID)
	index := -1
	for i, task := range tasks {
		if task.ID == item.task.ID {
			index = i
			break
		}
	}
	target := index + delta
	if index < 0 || target < 0 || target >= len(tasks) {
		return m, nil
	}

	ids := make([]int, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	ids[index], ids[target] = ids[target], ids[index]

	boardID := item.task.BoardID
	return m, func() tea.Msg {
		if err := m.cache.ReorderTasks(m.ctx, boardID, ids); err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{boardID: boardID, tasks: m.cache.VisibleTasks(boardID)}
	}
}

func (m model) selectedBoard() (board.Board, bool) {
	item, ok := m.boardList.SelectedItem().(boardItem)
	if !ok {
		return board.Board{}, false
	}
	return item.board, true
}

func nextFilter(current board.Filter) board.Filter {
	filters := board.ValidFilters()
	for i, f := range filters {
		if f == current {
			return filters[(i+1)%len(filters)]
		}
	}
	return board.FilterAll
}

func (m *model) resize() {
	statusHeight := 1
	helpHeight := 1
	listHeight := m.height - statusHeight - helpHeight
	if listHeight < 0 {
		listHeight = 0
	}

	boardWidth := m.width / 3
	taskWidth := m.width - boardWidth
	if boardWidth < 0 {
		boardWidth = 0
	}
	if taskWidth < 0 {
		taskWidth = 0
	}

	m.boardList.SetSize(boardWidth, listHeight)
	m.taskList.SetSize(taskWidth, listHeight)
}
