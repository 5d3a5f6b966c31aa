package boardtui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading taskboard..."
	}

	contentHeight := m.height - 2
	if contentHeight < 1 {
		contentHeight = 1
	}
	boardWidth := m.width / 3
	taskWidth := m.width - boardWidth

	boardPane := m.renderPane(m.boardList.View(), boardWidth, contentHeight, m.focus == focusBoards)
	taskPane := m.renderPane(m.taskList.View(), taskWidth, contentHeight, m.focus == focusTasks)
	content := lipgloss.JoinHorizontal(lipgloss.Top, boardPane, taskPane)

	return strings.Join([]string{content, m.renderStatusLine(), m.renderHelpLine()}, "\n")
}

func (m model) renderPane(content string, width, height int, active bool) string {
	style := paneStyle
	if active {
		style = paneActiveStyle
	}
	innerWidth := width - 4
	innerHeight := height - 2
	if innerWidth < 0 {
		innerWidth = 0
	}
	if innerHeight < 0 {
		innerHeight = 0
	}
	return style.Width(innerWidth).Height(innerHeight).Render(content)
}

func (m model) renderStatusLine() string {
	switch m.statusLevel {
	case statusError:
		return statusErrorStyle.Render(m.status)
	case statusInfo:
		return statusInfoStyle.Render(m.status)
	default:
		return ""
	}
}

func (m model) renderHelpLine() string {
	return helpStyle.Render("tab: switch pane  enter: open board  space: toggle done  J/K: move task  f: cycle filter  r: refresh  q: quit")
}
