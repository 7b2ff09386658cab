package channel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chanServer is a minimal in-process channel endpoint: it acknowledges
// joins (echoing subscriptions with assigned ids), heartbeats, and leaves,
// and lets tests push frames to the connected client.
type chanServer struct {
	t *testing.T

	tamperEcho      bool
	ignoreHeartbeat bool

	mu     sync.Mutex
	conn   *ws.Conn
	nextID int64
	left   map[string]bool
}

func newChanServer(t *testing.T) (*chanServer, string) {
	t.Helper()
	s := &chanServer{t: t, left: make(map[string]bool)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.serve(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)

	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (s *chanServer) serve(ctx context.Context, conn *ws.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Event {
		case eventJoin:
			var req joinRequest
			if err := json.Unmarshal(f.Payload, &req); err != nil {
				continue
			}
			resp := joinResponse{}
			for _, sub := range req.Subscriptions {
				s.mu.Lock()
				s.nextID++
				id := s.nextID
				s.mu.Unlock()
				if s.tamperEcho {
					sub.Filter = "tampered"
				}
				resp.Subscriptions = append(resp.Subscriptions, assignedSubscription{ID: id, Subscription: sub})
			}
			s.reply(ctx, conn, f, resp)
		case eventHeartbeat:
			if s.ignoreHeartbeat {
				continue
			}
			s.reply(ctx, conn, f, nil)
		case eventLeave:
			s.mu.Lock()
			s.left[f.Topic] = true
			s.mu.Unlock()
			s.reply(ctx, conn, f, nil)
		}
	}
}

func (s *chanServer) reply(ctx context.Context, conn *ws.Conn, req frame, response any) {
	rep := reply{Status: "ok"}
	if response != nil {
		raw, err := json.Marshal(response)
		if err != nil {
			s.t.Errorf("marshal reply: %v", err)
			return
		}
		rep.Response = raw
	}
	payload, _ := json.Marshal(rep)
	data, _ := json.Marshal(frame{Topic: req.Topic, Event: eventReply, Ref: req.Ref, Payload: payload})
	conn.Write(ctx, ws.MessageText, data)
}

// push sends a server-initiated frame to the connected client.
func (s *chanServer) push(t *testing.T, topic, event string, payload any) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		t.Fatal("no client connected")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	data, _ := json.Marshal(frame{Topic: topic, Event: event, Payload: raw})
	if err := conn.Write(context.Background(), ws.MessageText, data); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func (s *chanServer) hasLeft(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.left[topic]
}

// recordingHandler buffers delivered events.
type recordingHandler struct {
	rows       chan RowEvent
	broadcasts chan Broadcast
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		rows:       make(chan RowEvent, 16),
		broadcasts: make(chan Broadcast, 16),
	}
}

func (h *recordingHandler) OnRow(ev RowEvent)       { h.rows <- ev }
func (h *recordingHandler) OnBroadcast(b Broadcast) { h.broadcasts <- b }

func dialTest(t *testing.T, url string, opts Options) *Conn {
	t.Helper()
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = time.Hour // keep heartbeats out of the way
	}
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, url, opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestJoinReturnsAssignedIDs(t *testing.T) {
	_, url := newChanServer(t)
	conn := dialTest(t, url, Options{})

	subs := []Subscription{
		{Event: "*", Schema: "public", Table: "meals", Filter: "plan_id=eq.p1"},
		{Event: "*", Schema: "public", Table: "plans", Filter: "id=eq.p1"},
	}
	ids, err := conn.Join(context.Background(), "plan:p1", subs, newRecordingHandler())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if ids[0] == 0 || ids[1] == 0 || ids[0] == ids[1] {
		t.Errorf("ids not distinct and non-zero: %v", ids)
	}
}

func TestJoinEchoMismatchFails(t *testing.T) {
	srv, url := newChanServer(t)
	srv.tamperEcho = true
	conn := dialTest(t, url, Options{})

	subs := []Subscription{{Event: "*", Schema: "public", Table: "meals", Filter: "plan_id=eq.p1"}}
	if _, err := conn.Join(context.Background(), "plan:p1", subs, newRecordingHandler()); err == nil {
		t.Fatal("expected echo validation to fail")
	}
}

func TestRowEventDelivered(t *testing.T) {
	srv, url := newChanServer(t)
	conn := dialTest(t, url, Options{})

	h := newRecordingHandler()
	subs := []Subscription{{Event: "*", Schema: "public", Table: "meals", Filter: "plan_id=eq.p1"}}
	ids, err := conn.Join(context.Background(), "plan:p1", subs, h)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	srv.push(t, "plan:p1", eventRowChange, RowEvent{
		SubscriptionIDs: []int64{ids[0]},
		Type:            RowInsert,
		Record:          json.RawMessage(`{"id":"m1"}`),
	})

	select {
	case ev := <-h.rows:
		if ev.Type != RowInsert || len(ev.SubscriptionIDs) != 1 {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("row event never delivered")
	}
}

func TestBroadcastDelivered(t *testing.T) {
	srv, url := newChanServer(t)
	conn := dialTest(t, url, Options{})

	h := newRecordingHandler()
	if _, err := conn.Join(context.Background(), "shopping:p1:broadcast", nil, h); err != nil {
		t.Fatalf("join: %v", err)
	}

	srv.push(t, "shopping:p1:broadcast", eventBroadcast, Broadcast{
		Event:   "item_unchecked",
		Payload: json.RawMessage(`{"item_id":"i1"}`),
	})

	select {
	case b := <-h.broadcasts:
		if b.Event != "item_unchecked" {
			t.Errorf("event = %q", b.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never delivered")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	srv, url := newChanServer(t)
	conn := dialTest(t, url, Options{})

	h := newRecordingHandler()
	if _, err := conn.Join(context.Background(), "shopping:p1:broadcast", nil, h); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := conn.Leave(context.Background(), "shopping:p1:broadcast"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !srv.hasLeft("shopping:p1:broadcast") {
		t.Error("server never saw the leave")
	}

	srv.push(t, "shopping:p1:broadcast", eventBroadcast, Broadcast{Event: "item_unchecked"})

	select {
	case b := <-h.broadcasts:
		t.Fatalf("event delivered after leave: %+v", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedFrameDoesNotKillReadLoop(t *testing.T) {
	srv, url := newChanServer(t)
	conn := dialTest(t, url, Options{})

	h := newRecordingHandler()
	if _, err := conn.Join(context.Background(), "shopping:p1:broadcast", nil, h); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Raw garbage, then a valid broadcast: the second must still arrive.
	srv.mu.Lock()
	c := srv.conn
	srv.mu.Unlock()
	if err := c.Write(context.Background(), ws.MessageText, []byte(`{not json`)); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	srv.push(t, "shopping:p1:broadcast", eventBroadcast, Broadcast{Event: "checked_cleared"})

	select {
	case b := <-h.broadcasts:
		if b.Event != "checked_cleared" {
			t.Errorf("event = %q", b.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read loop died on malformed frame")
	}
}

func TestHeartbeatDegradesWhenUnacknowledged(t *testing.T) {
	srv, url := newChanServer(t)
	srv.ignoreHeartbeat = true

	states := make(chan State, 16)
	dialTest(t, url, Options{
		HeartbeatInterval: 20 * time.Millisecond,
		OnState:           func(s State) { states <- s },
	})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if s == StateDegraded {
				return
			}
		case <-deadline:
			t.Fatal("channel never reported degraded")
		}
	}
}

func TestCloseIsReentrant(t *testing.T) {
	_, url := newChanServer(t)
	conn := dialTest(t, url, Options{})

	if err := conn.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
