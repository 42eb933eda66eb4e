package ui

import tea "github.com/charmbracelet/bubbletea"

// View is a modal shown over the dashboard. It receives key input while open.
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
}
