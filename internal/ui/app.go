package ui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abhijith/smart-bookmark/internal/backend"
	"github.com/abhijith/smart-bookmark/internal/browser"
	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/store"
)

// Source is the bookmark state the dashboard renders. *store.Store satisfies it.
type Source interface {
	Bookmarks() []models.Bookmark
	Loading() bool
	Err() error
	Status() backend.Status
	Changes() <-chan struct{}
	Fetch(ctx context.Context) error
	Submit(ctx context.Context, title, rawURL string) (*models.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	User   models.User
	Logger logger.Logger
	// Clipboard and Open default to the system clipboard and browser.
	Clipboard func(string) error
	Open      func(string) error
	Now       func() time.Time
}

// Model is the dashboard's root tea.Model.
type Model struct {
	ctx  context.Context
	src  Source
	user models.User
	log  logger.Logger
	copy func(string) error
	open func(string) error
	now  func() time.Time

	quitting bool

	filter    store.Period
	search    textinput.Model
	searching bool
	cursor    int
	modal     View

	toasts      []toast
	nextToastID int

	width, height int
}

var _ tea.Model = (*Model)(nil)

func New(ctx context.Context, src Source, opts Options) *Model {
	search := textinput.New()
	search.Placeholder = "Search bookmarks..."
	search.Prompt = "/ "
	search.Width = 40

	m := &Model{
		ctx:    ctx,
		src:    src,
		user:   opts.User,
		log:    opts.Logger,
		copy:   opts.Clipboard,
		open:   opts.Open,
		now:    opts.Now,
		filter: store.PeriodAll,
		search: search,
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	if m.copy == nil {
		m.copy = clipboard.WriteAll
	}
	if m.open == nil {
		m.open = browser.Open
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, src Source, opts Options) error {
	p := tea.NewProgram(New(ctx, src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.src.Changes()), fetchCmd(m.ctx, m.src))
}

// Filter is the active stats-card filter.
func (m *Model) Filter() store.Period { return m.filter }

// Modal is the open modal, or nil.
func (m *Model) Modal() View { return m.modal }

// Toasts returns the texts of the notifications on screen, oldest first.
func (m *Model) Toasts() []string {
	out := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		out[i] = t.text
	}
	return out
}

// periodList is the mirror narrowed to the active filter.
func (m *Model) periodList() []models.Bookmark {
	return store.Filter(m.src.Bookmarks(), m.filter, m.now())
}

// visible is what the list shows: the filtered mirror narrowed by the search query.
func (m *Model) visible() []models.Bookmark {
	return store.Search(m.periodList(), m.search.Value())
}

func (m *Model) selected() (models.Bookmark, bool) {
	list := m.visible()
	if m.cursor < 0 || m.cursor >= len(list) {
		return models.Bookmark{}, false
	}
	return list[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setFilter(p store.Period) {
	m.filter = p
	m.cursor = 0
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case StoreChangedMsg:
		m.clampCursor()
		return m, waitForChange(m.src.Changes())

	case fetchDoneMsg:
		if msg.err != nil {
			m.log.Warn("dashboard fetch failed", logger.Error(msg.err))
		}
		return m, nil

	case SubmitAddMsg:
		m.modal = nil
		return m, addCmd(m.ctx, m.src, msg.Title, msg.URL)

	case addDoneMsg:
		if msg.err != nil {
			return m, showToast("Failed to add bookmark", ToastError)
		}
		m.setFilter(store.PeriodAll)
		return m, showToast("Bookmark added successfully!", ToastSuccess)

	case DeleteBookmarkMsg:
		m.modal = nil
		return m, deleteCmd(m.ctx, m.src, msg.ID, msg.Title)

	case deleteDoneMsg:
		m.clampCursor()
		if msg.err != nil {
			return m, showToast("Failed to delete bookmark", ToastError)
		}
		return m, showToast("Bookmark deleted", ToastSuccess)

	case DismissModalMsg:
		m.modal = nil
		return m, nil

	case ShowToastMsg:
		m.nextToastID++
		m.toasts = append(m.toasts, toast{id: m.nextToastID, text: msg.Text, kind: msg.Kind})
		return m, expireToast(m.nextToastID)

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.modal != nil {
			v, cmd := m.modal.Update(msg)
			m.modal = v
			return m, cmd
		}
		if m.searching {
			return m, m.updateSearch(msg)
		}
		return m, m.handleKey(msg)
	}

	if m.modal != nil {
		v, cmd := m.modal.Update(msg)
		m.modal = v
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		m.search.Blur()
		m.searching = false
		m.cursor = 0
		return nil
	case "enter", "down", "up":
		m.search.Blur()
		m.searching = false
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.cursor = 0
	return cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		m.quitting = true
		return tea.Quit
	case "a":
		modal := NewAddModal()
		m.modal = modal
		return modal.Init()
	case "/":
		m.searching = true
		return m.search.Focus()
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.cursor = 0
		}
		return nil
	case "j", "down":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
		return nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return nil
	case "1":
		m.setFilter(store.PeriodToday)
		return nil
	case "2":
		m.setFilter(store.PeriodWeek)
		return nil
	case "3":
		m.setFilter(store.PeriodAll)
		return nil
	case "tab":
		m.setFilter(nextPeriod(m.filter))
		return nil
	case "r":
		return fetchCmd(m.ctx, m.src)
	}

	b, ok := m.selected()
	if !ok {
		return nil
	}
	switch msg.String() {
	case "d", "x", "delete":
		if b.IsTemp() {
			return showToast("Bookmark is still being saved", ToastWarning)
		}
		m.modal = NewDeleteConfirmModal(b)
		return nil
	case "c", "y":
		if err := m.copy(b.URL); err != nil {
			m.log.Warn("copy link failed", logger.Error(err))
			return showToast("Failed to copy link", ToastError)
		}
		return showToast("Link copied to clipboard", ToastSuccess)
	case "o", "enter":
		if err := m.open(b.URL); err != nil {
			m.log.Warn("open link failed", logger.String("url", b.URL), logger.Error(err))
			return showToast("Failed to open link", ToastError)
		}
		return nil
	}
	return nil
}

// nextPeriod cycles in stats-card order: today, week, all.
func nextPeriod(p store.Period) store.Period {
	switch p {
	case store.PeriodToday:
		return store.PeriodWeek
	case store.PeriodWeek:
		return store.PeriodAll
	default:
		return store.PeriodToday
	}
}
