package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abhijith/smart-bookmark/internal/urlutil"
)

// AddModal is the add-bookmark form. Tab moves between the title and URL
// fields; Enter submits.
type AddModal struct {
	title textinput.Model
	url   textinput.Model
	focus int
}

var _ View = (*AddModal)(nil)

func NewAddModal() *AddModal {
	title := textinput.New()
	title.Placeholder = "My favorite website"
	title.Prompt = "Title: "
	title.Width = 48
	title.Focus()

	url := textinput.New()
	url.Placeholder = "https://example.com"
	url.Prompt = "URL:   "
	url.Width = 48

	return &AddModal{title: title, url: url}
}

func (m *AddModal) Init() tea.Cmd {
	return textinput.Blink
}

func (m *AddModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "tab", "shift+tab", "up", "down":
			m.toggleFocus()
			return m, nil
		case "enter":
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.url, cmd = m.url.Update(msg)
	}
	return m, cmd
}

func (m *AddModal) toggleFocus() {
	if m.focus == 0 {
		m.focus = 1
		m.title.Blur()
		m.url.Focus()
		return
	}
	m.focus = 0
	m.url.Blur()
	m.title.Focus()
}

// submit checks the fields in form order and reports the first problem
// as a toast. The store normalises the URL again when saving.
func (m *AddModal) submit() tea.Cmd {
	title := strings.TrimSpace(m.title.Value())
	rawURL := strings.TrimSpace(m.url.Value())
	switch {
	case title == "":
		return showToast("Please enter a title", ToastWarning)
	case rawURL == "":
		return showToast("Please enter a URL", ToastWarning)
	}
	if _, err := urlutil.ValidateAndNormalize(rawURL); err != nil {
		return showToast("Please enter a valid URL", ToastError)
	}
	return func() tea.Msg { return SubmitAddMsg{Title: title, URL: rawURL} }
}

// urlProblem is the inline warning under the URL field.
func (m *AddModal) urlProblem() string {
	raw := strings.TrimSpace(m.url.Value())
	if raw == "" {
		return ""
	}
	if _, err := urlutil.ValidateAndNormalize(raw); err != nil {
		return "Please enter a valid URL"
	}
	return ""
}

func (m *AddModal) View() string {
	content := Styles.Title.Render("Add bookmark") + "\n\n"
	content += m.title.View() + "\n"
	content += m.url.View() + "\n"
	if p := m.urlProblem(); p != "" {
		content += Styles.Error.Render("  "+p) + "\n"
	}
	content += "\n" + Styles.Hint.Render("Tab: switch field  Enter: add  Esc: cancel")
	return Styles.Box.Render(content)
}
