// Package store is the client-side mirror of the signed-in user's
// bookmarks. Adds and deletes show up in the mirror immediately and are
// rolled back when the backend rejects them; change-feed events trigger
// a full refetch so the mirror converges on the backend's state.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhijith/smart-bookmark/internal/backend"
	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/urlutil"
)

// ErrNotFound is returned by Delete for an id the mirror doesn't hold.
var ErrNotFound = errors.New("bookmark not found")

// Backend is the remote data API.
type Backend interface {
	ListBookmarks(ctx context.Context, accessToken, userID string) ([]models.Bookmark, error)
	InsertBookmark(ctx context.Context, accessToken string, nb models.NewBookmark) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, accessToken, id, userID string) error
}

// Cache holds the last fetched list between runs. Optional.
type Cache interface {
	Save(ctx context.Context, userID string, list []models.Bookmark) error
	Load(ctx context.Context, userID string) ([]models.Bookmark, error)
}

type Option func(*Store)

func WithCache(c Cache) Option { return func(s *Store) { s.cache = c } }

func WithLogger(l logger.Logger) Option { return func(s *Store) { s.logger = l } }

// WithReconnectBackoff sets the first wait before re-subscribing a
// dropped change-feed and the cap the wait doubles up to.
func WithReconnectBackoff(initial, maxWait time.Duration) Option {
	return func(s *Store) { s.retryInterval, s.retryMax = initial, maxWait }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

type Store struct {
	backend Backend
	tokens  backend.TokenSource
	cache   Cache
	logger  logger.Logger
	now     func() time.Time
	newID   func() string

	retryInterval time.Duration
	retryMax      time.Duration

	// fetchMu serialises refetches; mu guards everything below it.
	fetchMu sync.Mutex
	mu      sync.Mutex

	userID    string
	bookmarks []models.Bookmark
	loading   bool
	err       error
	fetched   bool
	status    backend.Status

	// in-flight optimistic operations, re-applied over refetched lists
	pendingAdds    map[string]models.Bookmark
	pendingDeletes map[string]models.Bookmark

	changes chan struct{}
}

func New(b Backend, tokens backend.TokenSource, userID string, opts ...Option) *Store {
	s := &Store{
		backend:        b,
		tokens:         tokens,
		logger:         logger.Nop(),
		now:            time.Now,
		newID:          func() string { return uuid.NewString() },
		retryInterval:  500 * time.Millisecond,
		retryMax:       30 * time.Second,
		userID:         userID,
		bookmarks:      []models.Bookmark{},
		loading:        true,
		pendingAdds:    map[string]models.Bookmark{},
		pendingDeletes: map[string]models.Bookmark{},
		changes:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Changes is signalled after every mirror update. Signals coalesce, so
// readers should re-read the snapshot rather than count them.
func (s *Store) Changes() <-chan struct{} { return s.changes }

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// SetUser switches the signed-in user. The mirror is emptied when the user changes.
func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	if s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.userID = userID
	s.bookmarks = []models.Bookmark{}
	s.err = nil
	s.loading = userID != ""
	s.fetched = false
	s.pendingAdds = map[string]models.Bookmark{}
	s.pendingDeletes = map[string]models.Bookmark{}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Bookmarks returns a copy of the mirror, newest first.
func (s *Store) Bookmarks() []models.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Bookmark, len(s.bookmarks))
	copy(out, s.bookmarks)
	return out
}

// Find returns the bookmark with id from the mirror.
func (s *Store) Find(id string) (models.Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.bookmarks, id)
	if i < 0 {
		return models.Bookmark{}, false
	}
	return s.bookmarks[i], true
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err is the last fetch failure, cleared when the next fetch starts.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Status is the latest change-feed subscription status, empty before Watch.
func (s *Store) Status() backend.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store) setStatus(st backend.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	s.notify()
}

// Fetch replaces the mirror with the backend's list. Without a user the
// mirror is cleared. On failure the mirror is left as it was and the
// error is kept for Err.
func (s *Store) Fetch(ctx context.Context) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	uid := s.userID
	if uid == "" {
		s.bookmarks = []models.Bookmark{}
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return nil
	}
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	s.notify()

	list, err := s.list(ctx, uid)

	s.mu.Lock()
	if s.userID != uid {
		// Signed out or switched user mid-fetch; the result is stale.
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("fetch bookmarks failed", logger.String("user_id", uid), logger.Error(err))
		return err
	}
	s.bookmarks = s.overlayPending(list)
	s.fetched = true
	s.mu.Unlock()
	s.notify()

	if s.cache != nil {
		if err := s.cache.Save(ctx, uid, list); err != nil {
			s.logger.Warn("cache snapshot failed", logger.Error(err))
		}
	}
	return nil
}

func (s *Store) list(ctx context.Context, uid string) ([]models.Bookmark, error) {
	token, err := s.tokens(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.backend.ListBookmarks(ctx, token, uid)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	return list, nil
}

// overlayPending keeps in-flight optimistic state visible across a
// refetch: pending adds stay on top, pending deletes stay hidden.
// Caller holds s.mu.
func (s *Store) overlayPending(list []models.Bookmark) []models.Bookmark {
	out := make([]models.Bookmark, 0, len(list)+len(s.pendingAdds))
	for _, b := range s.bookmarks {
		if _, ok := s.pendingAdds[b.ID]; ok {
			out = append(out, b)
		}
	}
	for _, b := range list {
		if _, ok := s.pendingDeletes[b.ID]; ok {
			continue
		}
		out = append(out, b)
	}
	return out
}

// LoadCached seeds the mirror from the snapshot cache. It does nothing
// once a fetch has succeeded or when no cache is configured.
func (s *Store) LoadCached(ctx context.Context) error {
	uid := s.UserID()
	if s.cache == nil || uid == "" {
		return nil
	}
	list, err := s.cache.Load(ctx, uid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.fetched || s.userID != uid || len(s.bookmarks) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.bookmarks = list
	s.mu.Unlock()
	s.notify()
	return nil
}

// Submit validates form input and adds the bookmark: the title is
// trimmed and the URL normalised first.
func (s *Store) Submit(ctx context.Context, title, rawURL string) (*models.Bookmark, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.ErrEmptyTitle
	}
	u, err := urlutil.ValidateAndNormalize(rawURL)
	if err != nil {
		return nil, err
	}
	return s.Add(ctx, title, u)
}

// Add inserts a bookmark optimistically. A temporary record is prepended
// at once and swapped for the stored row when the insert succeeds, or
// removed when it fails.
func (s *Store) Add(ctx context.Context, title, url string) (*models.Bookmark, error) {
	s.mu.Lock()
	uid := s.userID
	if uid == "" {
		s.mu.Unlock()
		return nil, models.ErrNotAuthenticated
	}
	temp := models.Bookmark{
		ID:        models.TempIDPrefix + s.newID(),
		UserID:    uid,
		Title:     title,
		URL:       url,
		CreatedAt: s.now(),
	}
	s.bookmarks = append([]models.Bookmark{temp}, s.bookmarks...)
	s.pendingAdds[temp.ID] = temp
	s.mu.Unlock()
	s.notify()

	saved, err := s.insert(ctx, models.NewBookmark{UserID: uid, Title: title, URL: url})

	s.mu.Lock()
	delete(s.pendingAdds, temp.ID)
	i := indexOf(s.bookmarks, temp.ID)
	if err != nil {
		if i >= 0 {
			s.bookmarks = removeAt(s.bookmarks, i)
		}
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("add bookmark failed", logger.String("url", url), logger.Error(err))
		return nil, err
	}
	switch {
	case i >= 0:
		s.bookmarks[i] = *saved
		// A refetch may already have brought the stored row in.
		if j := indexOfFrom(s.bookmarks, saved.ID, i+1); j >= 0 {
			s.bookmarks = removeAt(s.bookmarks, j)
		}
	case indexOf(s.bookmarks, saved.ID) < 0 && s.userID == uid:
		s.bookmarks = append([]models.Bookmark{*saved}, s.bookmarks...)
	}
	s.mu.Unlock()
	s.notify()
	return saved, nil
}

func (s *Store) insert(ctx context.Context, nb models.NewBookmark) (*models.Bookmark, error) {
	token, err := s.tokens(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := s.backend.InsertBookmark(ctx, token, nb)
	if err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}
	return saved, nil
}

// Delete removes a bookmark optimistically and puts it back if the
// backend refuses.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	uid := s.userID
	if uid == "" {
		s.mu.Unlock()
		return models.ErrNotAuthenticated
	}
	i := indexOf(s.bookmarks, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	victim := s.bookmarks[i]
	if victim.IsTemp() {
		s.mu.Unlock()
		return fmt.Errorf("bookmark %q is still being saved", victim.Title)
	}
	s.bookmarks = removeAt(s.bookmarks, i)
	s.pendingDeletes[id] = victim
	s.mu.Unlock()
	s.notify()

	err := s.remove(ctx, id, uid)

	s.mu.Lock()
	delete(s.pendingDeletes, id)
	if err != nil && s.userID == uid && indexOf(s.bookmarks, id) < 0 {
		s.bookmarks = insertByCreated(s.bookmarks, victim)
	}
	s.mu.Unlock()
	if err != nil {
		s.notify()
		s.logger.Warn("delete bookmark failed", logger.String("id", id), logger.Error(err))
		return err
	}
	return nil
}

func (s *Store) remove(ctx context.Context, id, uid string) error {
	token, err := s.tokens(ctx)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteBookmark(ctx, token, id, uid); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// Subscription is a live change-feed subscription.
type Subscription interface {
	Done() <-chan struct{}
	Close() error
}

// Feed opens change-feed subscriptions for a user.
type Feed interface {
	Subscribe(ctx context.Context, userID string, onChange func(backend.ChangeEvent), onStatus func(backend.Status)) (Subscription, error)
}

// RealtimeFeed adapts backend.Realtime to Feed.
type RealtimeFeed struct {
	Realtime *backend.Realtime
}

func (f RealtimeFeed) Subscribe(ctx context.Context, userID string, onChange func(backend.ChangeEvent), onStatus func(backend.Status)) (Subscription, error) {
	ch, err := f.Realtime.Subscribe(ctx, userID, onChange, onStatus)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Watch subscribes to the user's change-feed and refetches on every
// event until ctx is cancelled. Events arriving during a refetch collapse
// into a single follow-up fetch. A dropped feed is re-subscribed with
// capped exponential backoff, followed by one refetch for whatever was
// missed. Only the first subscribe failing ends Watch with an error.
func (s *Store) Watch(ctx context.Context, feed Feed) error {
	uid := s.UserID()
	if uid == "" {
		return models.ErrNotAuthenticated
	}

	trigger := make(chan struct{}, 1)
	onChange := func(ev backend.ChangeEvent) {
		s.logger.Debug("bookmark change received", logger.String("type", string(ev.Type)))
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	sub, err := feed.Subscribe(ctx, uid, onChange, s.setStatus)
	if err != nil {
		s.setStatus(backend.StatusChannelError)
		return fmt.Errorf("subscribe to changes: %w", err)
	}

	for {
		s.follow(ctx, sub, trigger)
		_ = sub.Close()
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Warn("change-feed dropped, resubscribing", logger.String("user_id", uid))
		sub, err = s.resubscribe(ctx, feed, uid, onChange)
		if err != nil {
			return nil
		}
		_ = s.Fetch(ctx)
	}
}

// follow refetches on change events until the subscription ends or ctx
// is cancelled.
func (s *Store) follow(ctx context.Context, sub Subscription, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case <-trigger:
			// Fetch records its own error for the UI.
			_ = s.Fetch(ctx)
		}
	}
}

// resubscribe retries feed.Subscribe until it succeeds, waiting
// retryInterval before the first attempt and doubling up to retryMax.
// It fails only when ctx ends.
func (s *Store) resubscribe(ctx context.Context, feed Feed, uid string, onChange func(backend.ChangeEvent)) (Subscription, error) {
	wait := s.retryInterval
	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		sub, err := feed.Subscribe(ctx, uid, onChange, s.setStatus)
		if err == nil {
			s.logger.Info("change-feed re-established", logger.Int("attempts", attempt))
			return sub, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.setStatus(backend.StatusChannelError)
		wait = min(wait*2, s.retryMax)
		s.logger.Warn("change-feed resubscribe failed",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err))
	}
}

func indexOf(list []models.Bookmark, id string) int {
	return indexOfFrom(list, id, 0)
}

func indexOfFrom(list []models.Bookmark, id string, from int) int {
	for i := from; i < len(list); i++ {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(list []models.Bookmark, i int) []models.Bookmark {
	out := make([]models.Bookmark, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// insertByCreated puts b before the first non-temporary record created
// earlier than it, which is where a fetch would have placed it.
func insertByCreated(list []models.Bookmark, b models.Bookmark) []models.Bookmark {
	pos := len(list)
	for i, cur := range list {
		if !cur.IsTemp() && cur.CreatedAt.Before(b.CreatedAt) {
			pos = i
			break
		}
	}
	out := make([]models.Bookmark, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, b)
	return append(out, list[pos:]...)
}
