package boardtui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/board"
)

type boardItem struct {
	board  board.Board
	filter board.Filter
}

func (item boardItem) FilterValue() string {
	return item.board.Name
}

type boardItemDelegate struct {
	normalStyle   lipgloss.Style
	selectedStyle lipgloss.Style
}

func newBoardItemDelegate() boardItemDelegate {
	return boardItemDelegate{
		normalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")),
	}
}

func (d boardItemDelegate) Height() int                             { return 1 }
func (d boardItemDelegate) Spacing() int                            { return 0 }
func (d boardItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d boardItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(boardItem)
	if !ok {
		return
	}

	line := formatBoardItem(item, m.Width())
	style := d.normalStyle
	if index == m.Index() {
		style = d.selectedStyle
	}
	fmt.Fprint(w, style.Render(line))
}

func formatBoardItem(item boardItem, width int) string {
	line := item.board.Name
	if item.filter != board.FilterAll {
		line = fmt.Sprintf("%s [%s]", item.board.Name, item.filter)
	}
	return truncateText(line, width)
}

type taskItem struct {
	task board.Task
}

func (item taskItem) FilterValue() string {
	return item.task.Name
}

type taskItemDelegate struct {
	normalStyle   lipgloss.Style
	doneStyle     lipgloss.Style
	selectedStyle lipgloss.Style
}

func newTaskItemDelegate() taskItemDelegate {
	return taskItemDelegate{
		normalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		doneStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")),
	}
}

func (d taskItemDelegate) Height() int                             { return 1 }
func (d taskItemDelegate) Spacing() int                            { return 0 }
func (d taskItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d taskItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(taskItem)
	if !ok {
		return
	}

	line := formatTaskItem(item, m.Width())
	style := d.normalStyle
	switch {
	case index == m.Index():
		style = d.selectedStyle
	case item.task.IsCompleted:
		style = d.doneStyle
	}
	fmt.Fprint(w, style.Render(line))
}

func formatTaskItem(item taskItem, width int) string {
	checkbox := "[ ]"
	if item.task.IsCompleted {
		checkbox = "[x]"
	}
	line := fmt.Sprintf("%s %s", checkbox, item.task.Name)
	if item.task.DueDate != "" {
		line = fmt.Sprintf("%s (due %s)", line, item.task.DueDate)
	}
	return truncateText(line, width)
}

func truncateText(value string, width int) string {
	if width <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
