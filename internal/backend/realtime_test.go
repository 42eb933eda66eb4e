package backend

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/websocket"
)

// fakeRealtime is a minimal Phoenix socket: it records every frame the
// client sends and lets the test push frames back.
type fakeRealtime struct {
	srv      *httptest.Server
	received chan inMessage
	onJoin   func(ws *websocket.Conn, msg inMessage)
}

func newFakeRealtime(t *testing.T, onJoin func(ws *websocket.Conn, msg inMessage)) *fakeRealtime {
	t.Helper()
	f := &fakeRealtime{received: make(chan inMessage, 64), onJoin: onJoin}
	f.srv = httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		if got := ws.Request().URL.Path; got != "/realtime/v1/websocket" {
			t.Errorf("path = %s", got)
		}
		if got := ws.Request().URL.Query().Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q", got)
		}
		for {
			var msg inMessage
			if err := websocket.JSON.Receive(ws, &msg); err != nil {
				return
			}
			f.received <- msg
			if msg.Event == "phx_join" && f.onJoin != nil {
				f.onJoin(ws, msg)
			}
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRealtime) waitFor(t *testing.T, event string) inMessage {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-f.received:
			if msg.Event == event {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", event)
		}
	}
}

func replyOK(ws *websocket.Conn, msg inMessage) {
	_ = websocket.JSON.Send(ws, map[string]any{
		"topic":   msg.Topic,
		"event":   "phx_reply",
		"ref":     *msg.Ref,
		"payload": map[string]any{"status": "ok", "response": map[string]any{}},
	})
}

func staticToken(tok string) TokenSource {
	return func(context.Context) (string, error) { return tok, nil }
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) has(s Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.statuses {
		if got == s {
			return true
		}
	}
	return false
}

func TestSubscribeDeliversChanges(t *testing.T) {
	f := newFakeRealtime(t, func(ws *websocket.Conn, msg inMessage) {
		replyOK(ws, msg)
		_ = websocket.JSON.Send(ws, map[string]any{
			"topic": msg.Topic,
			"event": "postgres_changes",
			"ref":   nil,
			"payload": map[string]any{
				"ids": []int{1},
				"data": map[string]any{
					"type":             "INSERT",
					"schema":           "public",
					"table":            "bookmarks",
					"commit_timestamp": "2024-05-03T08:00:00Z",
					"record": map[string]any{
						"id": "b1", "user_id": "u1", "title": "Go", "url": "https://go.dev",
						"created_at": "2024-05-03T08:00:00.5+00:00",
					},
					"old_record": map[string]any{},
				},
			},
		})
	})

	rt := NewRealtime(f.srv.URL, "anon-key", staticToken("tok"), nil)
	rt.HeartbeatInterval = 0

	events := make(chan ChangeEvent, 1)
	var statuses statusRecorder
	ch, err := rt.Subscribe(context.Background(), "u1", func(ev ChangeEvent) { events <- ev }, statuses.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	join := f.waitFor(t, "phx_join")
	if !strings.HasPrefix(join.Topic, "realtime:bookmarks-realtime-u1-") {
		t.Fatalf("topic = %q", join.Topic)
	}
	if got := gjson.GetBytes(join.Payload, "access_token").String(); got != "tok" {
		t.Fatalf("access_token = %q", got)
	}
	changes := gjson.GetBytes(join.Payload, "config.postgres_changes").Array()
	if len(changes) != 3 {
		t.Fatalf("postgres_changes bindings = %d", len(changes))
	}
	for _, c := range changes {
		if c.Get("filter").String() != "user_id=eq.u1" || c.Get("table").String() != "bookmarks" {
			t.Fatalf("binding = %s", c.Raw)
		}
	}
	if !statuses.has(StatusSubscribed) {
		t.Fatalf("statuses = %v", statuses.statuses)
	}

	select {
	case ev := <-events:
		if ev.Type != ChangeInsert || ev.Record == nil || ev.Record.ID != "b1" {
			t.Fatalf("event = %+v", ev)
		}
		if ev.OldRecord != nil {
			t.Fatalf("old record = %+v", ev.OldRecord)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	leave := f.waitFor(t, "phx_leave")
	if leave.Topic != ch.Topic() {
		t.Fatalf("leave topic = %q", leave.Topic)
	}
	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel not done after Close")
	}
}

func TestSubscribeJoinRejected(t *testing.T) {
	f := newFakeRealtime(t, func(ws *websocket.Conn, msg inMessage) {
		_ = websocket.JSON.Send(ws, map[string]any{
			"topic":   msg.Topic,
			"event":   "phx_reply",
			"ref":     *msg.Ref,
			"payload": map[string]any{"status": "error", "response": map[string]any{"reason": "unauthorized"}},
		})
	})

	rt := NewRealtime(f.srv.URL, "anon-key", staticToken("tok"), nil)
	var statuses statusRecorder
	_, err := rt.Subscribe(context.Background(), "u1", nil, statuses.record)
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("err = %v", err)
	}
	if !statuses.has(StatusChannelError) {
		t.Fatalf("statuses = %v", statuses.statuses)
	}
}

func TestSubscribeJoinTimeout(t *testing.T) {
	f := newFakeRealtime(t, nil)

	rt := NewRealtime(f.srv.URL, "anon-key", staticToken("tok"), nil)
	rt.JoinTimeout = 50 * time.Millisecond
	var statuses statusRecorder
	if _, err := rt.Subscribe(context.Background(), "u1", nil, statuses.record); err == nil {
		t.Fatal("expected timeout error")
	}
	if !statuses.has(StatusTimedOut) {
		t.Fatalf("statuses = %v", statuses.statuses)
	}
}

func TestSubscribeRequiresUser(t *testing.T) {
	rt := NewRealtime("http://127.0.0.1:1", "anon-key", staticToken("tok"), nil)
	if _, err := rt.Subscribe(context.Background(), "", nil, nil); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestHeartbeatPushesRefreshedToken(t *testing.T) {
	f := newFakeRealtime(t, replyOK)

	var calls atomic.Int32
	tokens := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "tok-1", nil
		}
		return "tok-2", nil
	}

	rt := NewRealtime(f.srv.URL, "anon-key", tokens, nil)
	rt.HeartbeatInterval = 20 * time.Millisecond
	ch, err := rt.Subscribe(context.Background(), "u1", nil, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer ch.Close()

	hb := f.waitFor(t, "heartbeat")
	if hb.Topic != "phoenix" {
		t.Fatalf("heartbeat topic = %q", hb.Topic)
	}
	msg := f.waitFor(t, "access_token")
	if got := gjson.GetBytes(msg.Payload, "access_token").String(); got != "tok-2" {
		t.Fatalf("refreshed token = %q", got)
	}
}

func TestSubscribeClosesWithContext(t *testing.T) {
	f := newFakeRealtime(t, replyOK)

	rt := NewRealtime(f.srv.URL, "anon-key", staticToken("tok"), nil)
	rt.HeartbeatInterval = 0
	ctx, cancel := context.WithCancel(context.Background())
	var statuses statusRecorder
	ch, err := rt.Subscribe(ctx, "u1", nil, statuses.record)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel still open after context cancel")
	}
	if !statuses.has(StatusClosed) {
		t.Fatalf("statuses = %v", statuses.statuses)
	}
}

func TestRealtimeEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://proj.example.co/", "wss://proj.example.co/realtime/v1/websocket?apikey=k&vsn=1.0.0"},
		{"http://localhost:54321", "ws://localhost:54321/realtime/v1/websocket?apikey=k&vsn=1.0.0"},
	}
	for _, tt := range tests {
		if got := realtimeEndpoint(tt.base, "k"); got != tt.want {
			t.Errorf("realtimeEndpoint(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestDecodeChange(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantOK  bool
		check   func(t *testing.T, ev ChangeEvent)
	}{
		{
			name:    "delete carries old id",
			payload: `{"data":{"type":"DELETE","table":"bookmarks","record":{},"old_record":{"id":"b1"}}}`,
			wantOK:  true,
			check: func(t *testing.T, ev ChangeEvent) {
				if ev.Type != ChangeDelete || ev.Record != nil || ev.OldRecord == nil || ev.OldRecord.ID != "b1" {
					t.Fatalf("event = %+v", ev)
				}
			},
		},
		{
			name:    "lenient timestamp",
			payload: `{"data":{"type":"update","record":{"id":"b2","created_at":"not a time"}}}`,
			wantOK:  true,
			check: func(t *testing.T, ev ChangeEvent) {
				if ev.Type != ChangeUpdate || ev.Record == nil || ev.Record.ID != "b2" {
					t.Fatalf("event = %+v", ev)
				}
			},
		},
		{name: "other table", payload: `{"data":{"type":"INSERT","table":"profiles"}}`},
		{name: "unknown type", payload: `{"data":{"type":"TRUNCATE"}}`},
		{name: "no data", payload: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := decodeChange(json.RawMessage(tt.payload))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}
