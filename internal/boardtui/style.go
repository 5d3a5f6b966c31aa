package boardtui

import "github.com/charmbracelet/lipgloss"

var (
	borderASCII = lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	paneStyle       = lipgloss.NewStyle().Border(borderASCII).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	paneActiveStyle = paneStyle.BorderForeground(lipgloss.Color("33"))

	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
