package ui

import "github.com/charmbracelet/lipgloss"

// Theme colors used throughout the dashboard
const (
	ColorAccent    = "86"  // Cyan/green - titles, active card
	ColorHighlight = "205" // Magenta - selection, modal borders
	ColorDanger    = "196" // Red - errors, delete confirm
	ColorSuccess   = "42"  // Green - live indicator, success toasts
	ColorWarning   = "208" // Orange - warnings
	ColorMuted     = "241" // Gray - hints, secondary text
	ColorText      = "252" // Light gray - normal text
)

var Styles = struct {
	Title        lipgloss.Style
	TitleWarning lipgloss.Style

	Navbar     lipgloss.Style
	Card       lipgloss.Style
	CardActive lipgloss.Style
	CardValue  lipgloss.Style

	Box       lipgloss.Style
	BoxDanger lipgloss.Style

	Selected lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Hint     lipgloss.Style
	Empty    lipgloss.Style
	Error    lipgloss.Style
	Live     lipgloss.Style
	Offline  lipgloss.Style

	ToastSuccess lipgloss.Style
	ToastWarning lipgloss.Style
	ToastError   lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	TitleWarning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorDanger)),
	Navbar: lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color(ColorMuted)),
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorMuted)).
		Padding(0, 2).
		Width(24),
	CardActive: lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(0, 2).
		Width(24),
	CardValue: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorText)),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(1, 2).
		Margin(1),
	BoxDanger: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDanger)).
		Padding(1, 2).
		Margin(1),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Empty: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)),
	Live: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSuccess)),
	Offline: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	ToastSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSuccess)).
		Bold(true),
	ToastWarning: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWarning)).
		Bold(true),
	ToastError: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)).
		Bold(true),
}
