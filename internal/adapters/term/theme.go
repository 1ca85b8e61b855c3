package term

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red

	// Node type colors
	TypeStandard = lipgloss.Color("#60A5FA") // Blue
	TypeSIMO     = lipgloss.Color("#8B5CF6") // Violet
	TypeMISO     = lipgloss.Color("#EC4899") // Pink

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	NodeID = lipgloss.NewStyle().
		Bold(true)

	Arrow = lipgloss.NewStyle().
		Foreground(Muted)

	Weight = lipgloss.NewStyle().
		Foreground(Warning)

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(Warning)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)
