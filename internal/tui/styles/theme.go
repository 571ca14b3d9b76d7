package styles

import "github.com/charmbracelet/lipgloss"

// Theme defines the core UI styles
var Theme = struct {
	App       lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Cursor    lipgloss.Style
	Selected  lipgloss.Style
	Mandatory lipgloss.Style
	Muted     lipgloss.Style
	Preset    lipgloss.Style
	Status    lipgloss.Style
	Confirm   lipgloss.Style
	Help      lipgloss.Style
}{
	App: lipgloss.NewStyle().
		Padding(1, 2),
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4F4FB7")).
		Padding(0, 1),
	Header: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7B61FF")).
		MarginTop(1),
	Cursor: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4F4FB7")),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#73F59F")).
		Bold(true),
	Mandatory: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#81A1C1")),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")),
	Preset: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#D08770")),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#959595")),
	Confirm: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF5F87")),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5A9")),
}
