package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abhijith/smart-bookmark/internal/backend"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/store"
	"github.com/abhijith/smart-bookmark/internal/urlutil"
)

const helpLine = "a add  / search  1 today  2 week  3 all  enter open  c copy  d delete  r refresh  q quit"

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.renderNavbar())
	b.WriteString("\n")
	b.WriteString(m.renderCards())
	b.WriteString("\n\n")
	if m.modal != nil {
		b.WriteString(m.modal.View())
	} else {
		b.WriteString(m.renderList())
	}
	b.WriteString("\n")
	for _, t := range m.toasts {
		b.WriteString(t.render())
		b.WriteString("\n")
	}
	b.WriteString(Styles.Hint.Render(helpLine))
	return b.String()
}

func (m *Model) renderNavbar() string {
	left := Styles.Title.Render("★ Smart Bookmark")

	var live string
	switch m.src.Status() {
	case backend.StatusSubscribed:
		live = Styles.Live.Render("● Live")
	case backend.StatusChannelError, backend.StatusTimedOut, backend.StatusClosed:
		live = Styles.Offline.Render("○ Offline")
	default:
		live = Styles.Offline.Render("○ Connecting")
	}

	user := Styles.Selected.Render("["+m.user.Initial()+"]") + " " + Styles.Normal.Render(m.user.DisplayName())
	if m.user.Email != "" && m.user.Email != m.user.DisplayName() {
		user += " " + Styles.Muted.Render(m.user.Email)
	}
	right := live + "   " + user

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 3 {
		gap = 3
	}
	return Styles.Navbar.Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderCards() string {
	stats := store.ComputeStats(m.src.Bookmarks(), m.now())
	loading := m.src.Loading() && len(m.src.Bookmarks()) == 0

	cards := []struct {
		key    string
		label  string
		period store.Period
	}{
		{"1", "Added Today", store.PeriodToday},
		{"2", "Added This Week", store.PeriodWeek},
		{"3", "Total Bookmarks", store.PeriodAll},
	}
	rendered := make([]string, len(cards))
	for i, c := range cards {
		value := "…"
		if !loading {
			value = fmt.Sprint(stats.Count(c.period))
		}
		style := Styles.Card
		label := Styles.Muted.Render(c.key + " " + c.label)
		if m.filter == c.period {
			style = Styles.CardActive
			label = Styles.Title.Render(c.key+" "+c.label) + " ✓"
		}
		rendered[i] = style.Render(label + "\n" + Styles.CardValue.Render(value))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *Model) renderList() string {
	var b strings.Builder
	base := m.periodList()
	list := store.Search(base, m.search.Value())

	b.WriteString(Styles.Title.Render("Your bookmarks"))
	b.WriteString("  ")
	b.WriteString(Styles.Muted.Render(fmt.Sprintf("Showing: %s Bookmarks (%d)", m.filter.Label(), len(base))))
	b.WriteString("\n\n")

	if m.src.Loading() && len(base) == 0 {
		b.WriteString(Styles.Empty.Render("Loading bookmarks..."))
		b.WriteString("\n")
		return b.String()
	}
	if err := m.src.Err(); err != nil {
		b.WriteString(Styles.Error.Render("Failed to load bookmarks: " + err.Error()))
		b.WriteString("\n")
		b.WriteString(Styles.Hint.Render("Press r to retry"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(Styles.Muted.Render(plural(len(base), "bookmark") + " saved"))
	b.WriteString("\n")
	if len(base) > 0 || m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case len(base) == 0:
		b.WriteString(Styles.Normal.Render("No bookmarks yet"))
		b.WriteString("\n")
		b.WriteString(Styles.Empty.Render("Start saving your favorite websites! Press a to add your first bookmark."))
		b.WriteString("\n")
		return b.String()
	case len(list) == 0:
		b.WriteString(Styles.Normal.Render("No results found"))
		b.WriteString("\n")
		b.WriteString(Styles.Empty.Render(fmt.Sprintf("No bookmarks match %q. Try a different search term.", strings.TrimSpace(m.search.Value()))))
		b.WriteString("\n")
		return b.String()
	}

	start, end := m.window(len(list))
	now := m.now()
	for i := start; i < end; i++ {
		b.WriteString(renderItem(list[i], i == m.cursor, now))
	}
	if end-start < len(list) {
		b.WriteString(Styles.Hint.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, len(list))))
		b.WriteString("\n")
	}
	return b.String()
}

// window picks the slice of rows to draw so the cursor stays on screen.
// Each row takes three lines.
func (m *Model) window(n int) (int, int) {
	if m.height == 0 {
		return 0, n
	}
	rows := max(3, (m.height-18)/3)
	if n <= rows {
		return 0, n
	}
	start := m.cursor - rows/2
	start = max(0, min(start, n-rows))
	return start, start + rows
}

func renderItem(b models.Bookmark, selected bool, now time.Time) string {
	marker, title := "  ", Styles.Normal.Render(b.Title)
	if selected {
		marker, title = Styles.Selected.Render("> "), Styles.Selected.Render(b.Title)
	}
	age := "saving..."
	if !b.IsTemp() {
		age = humanize.RelTime(b.CreatedAt, now, "ago", "from now")
	}
	meta := Styles.Muted.Render(urlutil.ExtractDomain(b.URL) + " · " + age)
	return marker + title + "\n" +
		"  " + meta + "\n" +
		"  " + Styles.Hint.Render(b.URL) + "\n"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
