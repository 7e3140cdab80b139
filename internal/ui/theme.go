package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	cellStyle = lipgloss.NewStyle().
			Width(5).
			Align(lipgloss.Center).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	cursorCellStyle = cellStyle.
			BorderForeground(lipgloss.Color("205"))

	xStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	oStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	statusStyle = lipgloss.NewStyle().MarginTop(1)
	errorStyle  = lipgloss.NewStyle().MarginTop(1).Foreground(lipgloss.Color("196"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func tokenStyle(token string) lipgloss.Style {
	switch token {
	case "X":
		return xStyle
	case "O":
		return oStyle
	default:
		return lipgloss.NewStyle()
	}
}
