package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/websocket"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
)

const (
	defaultHeartbeat   = 30 * time.Second
	defaultJoinTimeout = 10 * time.Second
	bookmarksTable     = "bookmarks"
)

// ChangeType is the kind of row change reported by the change-feed.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Status mirrors the subscription states the change-feed reports.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusClosed       Status = "CLOSED"
)

// ChangeEvent is one row change on the bookmarks table.
// Record is set for INSERT and UPDATE, OldRecord for DELETE (usually only the id).
type ChangeEvent struct {
	Type            ChangeType
	Record          *models.Bookmark
	OldRecord       *models.Bookmark
	CommitTimestamp time.Time
}

// TokenSource yields the current user access token.
type TokenSource func(ctx context.Context) (string, error)

// Realtime opens change-feed subscriptions over a Phoenix channel socket.
type Realtime struct {
	endpoint string
	apiKey   string
	tokens   TokenSource
	logger   logger.Logger
	now      func() time.Time

	HeartbeatInterval time.Duration
	JoinTimeout       time.Duration
}

func NewRealtime(baseURL, apiKey string, tokens TokenSource, log logger.Logger) *Realtime {
	if log == nil {
		log = logger.Nop()
	}
	return &Realtime{
		endpoint:          realtimeEndpoint(baseURL, apiKey),
		apiKey:            apiKey,
		tokens:            tokens,
		logger:            log,
		now:               time.Now,
		HeartbeatInterval: defaultHeartbeat,
		JoinTimeout:       defaultJoinTimeout,
	}
}

func realtimeEndpoint(baseURL, apiKey string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	q := url.Values{"apikey": {apiKey}, "vsn": {"1.0.0"}}
	return base + "/realtime/v1/websocket?" + q.Encode()
}

// ChannelName is unique per subscription so several sessions of the same
// user never share a channel.
func ChannelName(userID string, now time.Time) string {
	return fmt.Sprintf("bookmarks-realtime-%s-%d", userID, now.UnixMilli())
}

type outMessage struct {
	Topic   string  `json:"topic"`
	Event   string  `json:"event"`
	Payload any     `json:"payload"`
	Ref     string  `json:"ref"`
	JoinRef *string `json:"join_ref,omitempty"`
}

type inMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type changeBinding struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter"`
}

func joinPayload(userID, token string) map[string]any {
	filter := "user_id=eq." + userID
	bindings := make([]changeBinding, 0, 3)
	for _, ev := range []ChangeType{ChangeInsert, ChangeUpdate, ChangeDelete} {
		bindings = append(bindings, changeBinding{
			Event:  string(ev),
			Schema: "public",
			Table:  bookmarksTable,
			Filter: filter,
		})
	}
	return map[string]any{
		"config": map[string]any{
			"broadcast":        map[string]bool{"self": false},
			"presence":         map[string]string{"key": ""},
			"postgres_changes": bindings,
		},
		"access_token": token,
	}
}

// Channel is a live subscription. Close it to leave the channel.
type Channel struct {
	topic    string
	conn     *websocket.Conn
	logger   logger.Logger
	onChange func(ChangeEvent)
	onStatus func(Status)

	writeMu sync.Mutex
	ref     atomic.Int64
	joinRef string
	joined  chan error

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	stop      context.CancelFunc
}

// Subscribe joins the user's bookmark change-feed. It returns once the join
// is acknowledged. onChange and onStatus run on the socket's read goroutine.
func (r *Realtime) Subscribe(ctx context.Context, userID string, onChange func(ChangeEvent), onStatus func(Status)) (*Channel, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}
	if onChange == nil {
		onChange = func(ChangeEvent) {}
	}
	if onStatus == nil {
		onStatus = func(Status) {}
	}

	token, err := r.tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime token: %w", err)
	}

	cfg, err := websocket.NewConfig(r.endpoint, "http://localhost/")
	if err != nil {
		return nil, fmt.Errorf("realtime config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	ch := &Channel{
		topic:    "realtime:" + ChannelName(userID, r.now()),
		conn:     conn,
		logger:   r.logger,
		onChange: onChange,
		onStatus: onStatus,
		joined:   make(chan error, 1),
		done:     make(chan struct{}),
		stop:     stop,
	}
	ch.joinRef = ch.nextRef()

	go ch.readLoop()

	if err := ch.send(outMessage{
		Topic:   ch.topic,
		Event:   "phx_join",
		Payload: joinPayload(userID, token),
		Ref:     ch.joinRef,
		JoinRef: &ch.joinRef,
	}); err != nil {
		ch.shutdown(false)
		return nil, fmt.Errorf("realtime join: %w", err)
	}

	timer := time.NewTimer(r.JoinTimeout)
	defer timer.Stop()
	select {
	case err := <-ch.joined:
		if err != nil {
			onStatus(StatusChannelError)
			ch.shutdown(false)
			return nil, err
		}
	case <-timer.C:
		onStatus(StatusTimedOut)
		ch.shutdown(false)
		return nil, fmt.Errorf("realtime join timed out after %v", r.JoinTimeout)
	case <-ctx.Done():
		ch.shutdown(false)
		return nil, ctx.Err()
	case <-ch.done:
		ch.shutdown(false)
		return nil, errors.New("realtime connection closed before join")
	}

	r.logger.Info("realtime subscription status",
		logger.String("topic", ch.topic),
		logger.String("status", string(StatusSubscribed)))
	onStatus(StatusSubscribed)

	go ch.heartbeat(runCtx, r.HeartbeatInterval, r.tokens, token)
	go func() {
		select {
		case <-ctx.Done():
			_ = ch.Close()
		case <-ch.done:
		}
	}()

	return ch, nil
}

// Topic is the channel topic, including the "realtime:" prefix.
func (ch *Channel) Topic() string { return ch.topic }

// Done is closed when the socket ends, for whatever reason.
func (ch *Channel) Done() <-chan struct{} { return ch.done }

// Close leaves the channel and closes the socket.
func (ch *Channel) Close() error {
	ch.shutdown(true)
	return nil
}

func (ch *Channel) shutdown(leave bool) {
	ch.closeOnce.Do(func() {
		ch.closing.Store(true)
		ch.stop()
		if leave {
			_ = ch.send(outMessage{Topic: ch.topic, Event: "phx_leave", Payload: map[string]any{}, Ref: ch.nextRef()})
		}
		_ = ch.conn.Close()
	})
}

func (ch *Channel) nextRef() string {
	return strconv.FormatInt(ch.ref.Add(1), 10)
}

func (ch *Channel) send(msg outMessage) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return websocket.JSON.Send(ch.conn, msg)
}

func (ch *Channel) heartbeat(ctx context.Context, every time.Duration, tokens TokenSource, lastToken string) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := ch.send(outMessage{Topic: "phoenix", Event: "heartbeat", Payload: map[string]any{}, Ref: ch.nextRef()}); err != nil {
			ch.logger.Warn("realtime heartbeat failed", logger.Error(err))
			return
		}
		// Push a refreshed access token so the server keeps authorising the channel.
		token, err := tokens(ctx)
		if err != nil || token == "" || token == lastToken {
			continue
		}
		if err := ch.send(outMessage{
			Topic:   ch.topic,
			Event:   "access_token",
			Payload: map[string]string{"access_token": token},
			Ref:     ch.nextRef(),
		}); err == nil {
			lastToken = token
		}
	}
}

func (ch *Channel) readLoop() {
	defer close(ch.done)
	for {
		var msg inMessage
		if err := websocket.JSON.Receive(ch.conn, &msg); err != nil {
			if !ch.closing.Load() {
				ch.logger.Warn("realtime connection lost", logger.String("topic", ch.topic), logger.Error(err))
				ch.onStatus(StatusChannelError)
				ch.signalJoin(fmt.Errorf("realtime connection lost: %w", err))
			}
			ch.onStatus(StatusClosed)
			return
		}
		ch.dispatch(msg)
	}
}

func (ch *Channel) signalJoin(err error) {
	select {
	case ch.joined <- err:
	default:
	}
}

func (ch *Channel) dispatch(msg inMessage) {
	if msg.Topic != ch.topic {
		return
	}
	switch msg.Event {
	case "phx_reply":
		if msg.Ref == nil || *msg.Ref != ch.joinRef {
			return
		}
		status := gjson.GetBytes(msg.Payload, "status").String()
		if status == "ok" {
			ch.signalJoin(nil)
			return
		}
		reason := gjson.GetBytes(msg.Payload, "response.reason").String()
		if reason == "" {
			reason = status
		}
		ch.signalJoin(fmt.Errorf("realtime join rejected: %s", reason))
	case "postgres_changes":
		ev, ok := decodeChange(msg.Payload)
		if !ok {
			ch.logger.Warn("realtime: unreadable change payload", logger.String("topic", ch.topic))
			return
		}
		ch.logger.Debug("realtime change", logger.String("type", string(ev.Type)))
		ch.onChange(ev)
	case "system":
		if gjson.GetBytes(msg.Payload, "status").String() == "error" {
			ch.logger.Warn("realtime system error",
				logger.String("message", gjson.GetBytes(msg.Payload, "message").String()))
			ch.onStatus(StatusChannelError)
		}
	case "phx_error":
		ch.onStatus(StatusChannelError)
	case "phx_close":
		ch.onStatus(StatusClosed)
	}
}

func decodeChange(payload []byte) (ChangeEvent, bool) {
	data := gjson.GetBytes(payload, "data")
	if !data.Exists() {
		return ChangeEvent{}, false
	}
	if table := data.Get("table").String(); table != "" && table != bookmarksTable {
		return ChangeEvent{}, false
	}
	ev := ChangeEvent{Type: ChangeType(strings.ToUpper(data.Get("type").String()))}
	switch ev.Type {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return ChangeEvent{}, false
	}
	if ts, err := time.Parse(time.RFC3339, data.Get("commit_timestamp").String()); err == nil {
		ev.CommitTimestamp = ts
	}
	ev.Record = decodeRecord(data.Get("record"))
	ev.OldRecord = decodeRecord(data.Get("old_record"))
	return ev, true
}

// decodeRecord is lenient: a record that doesn't fit the model is dropped
// rather than failing the whole event, since listeners refetch anyway.
func decodeRecord(r gjson.Result) *models.Bookmark {
	if !r.IsObject() || len(r.Map()) == 0 {
		return nil
	}
	var b models.Bookmark
	if err := json.Unmarshal([]byte(r.Raw), &b); err != nil {
		b = models.Bookmark{
			ID:     r.Get("id").String(),
			UserID: r.Get("user_id").String(),
			Title:  r.Get("title").String(),
			URL:    r.Get("url").String(),
		}
	}
	return &b
}
