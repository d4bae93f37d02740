// Package treeview is a terminal browser for wrapped cluster trees.
package treeview

import "github.com/charmbracelet/lipgloss"

// Theme holds every style the tree browser renders with.
type Theme struct {
	Border    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Unknown   lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Unknown:   lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}
