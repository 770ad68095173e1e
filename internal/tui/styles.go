package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginLeft(2)

	nodesBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1).
			MarginLeft(2)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// statusColors follow the DOT renderer: S blue, I/A red, R yellow, V green,
// H gray.
var statusColors = map[models.Status]lipgloss.Color{
	models.Susceptible: lipgloss.Color("#5F87FF"),
	models.Infected:    lipgloss.Color("#FF0000"),
	models.Adopted:     lipgloss.Color("#FF0000"),
	models.Recovered:   lipgloss.Color("#FFFF00"),
	models.Vaccinated:  lipgloss.Color("#00FF00"),
	models.Sheltered:   lipgloss.Color("#888888"),
}

// statusStyle returns the style used to draw nodes in state st.
func statusStyle(st models.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(statusColors[st]).Bold(st == models.Infected || st == models.Adopted)
}
