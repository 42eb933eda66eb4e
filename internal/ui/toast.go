package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastWarning
	ToastError
)

// ToastDuration is how long a notification stays on screen.
var ToastDuration = 3 * time.Second

type toast struct {
	id   int
	text string
	kind ToastKind
}

func (t toast) render() string {
	switch t.kind {
	case ToastWarning:
		return Styles.ToastWarning.Render("! " + t.text)
	case ToastError:
		return Styles.ToastError.Render("✗ " + t.text)
	default:
		return Styles.ToastSuccess.Render("✓ " + t.text)
	}
}

func showToast(text string, kind ToastKind) tea.Cmd {
	return func() tea.Msg { return ShowToastMsg{Text: text, Kind: kind} }
}

func expireToast(id int) tea.Cmd {
	return tea.Tick(ToastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}
