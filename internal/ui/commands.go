package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// waitForChange blocks until the store signals and reports it as a
// message. The dashboard re-arms it after every StoreChangedMsg.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StoreChangedMsg{}
	}
}

func fetchCmd(ctx context.Context, src Source) tea.Cmd {
	return func() tea.Msg {
		return fetchDoneMsg{err: src.Fetch(ctx)}
	}
}

func addCmd(ctx context.Context, src Source, title, url string) tea.Cmd {
	return func() tea.Msg {
		b, err := src.Submit(ctx, title, url)
		return addDoneMsg{bookmark: b, err: err}
	}
}

func deleteCmd(ctx context.Context, src Source, id, title string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{title: title, err: src.Delete(ctx, id)}
	}
}
