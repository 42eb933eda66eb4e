package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abhijith/smart-bookmark/internal/models"
)

// ConfirmModal asks before an irreversible action.
// Enter or y confirms; Esc or n cancels.
type ConfirmModal struct {
	Title     string
	Label     string
	Details   string
	OnConfirm func() tea.Msg
}

var _ View = (*ConfirmModal)(nil)

func NewConfirmModal(title, label string, onConfirm func() tea.Msg) *ConfirmModal {
	return &ConfirmModal{Title: title, Label: label, OnConfirm: onConfirm}
}

// NewDeleteConfirmModal confirms deleting b.
func NewDeleteConfirmModal(b models.Bookmark) *ConfirmModal {
	m := NewConfirmModal("Delete bookmark?", b.Title, func() tea.Msg {
		return DeleteBookmarkMsg{ID: b.ID, Title: b.Title}
	})
	m.Details = b.URL
	return m
}

func (m *ConfirmModal) Init() tea.Cmd { return nil }

func (m *ConfirmModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "n":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter", "y":
			if m.OnConfirm != nil {
				return m, m.OnConfirm
			}
		}
	}
	return m, nil
}

func (m *ConfirmModal) View() string {
	content := Styles.TitleWarning.Render(m.Title) + "\n\n"
	content += Styles.Normal.Render(m.Label)
	if m.Details != "" {
		content += "\n" + Styles.Muted.Render(m.Details)
	}
	content += "\n\n" + Styles.Hint.Render("y/Enter: confirm  Esc: cancel")
	return Styles.BoxDanger.Render(content)
}
