package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const defaultHeartbeatInterval = 30 * time.Second

// State describes the connection's liveness as observed by heartbeats.
type State string

const (
	StateConnected State = "connected"
	StateDegraded  State = "degraded"
	StateClosed    State = "closed"
)

// Handler receives events for one joined topic. Callbacks run on the
// connection's read goroutine and must not block for long.
type Handler interface {
	OnRow(ev RowEvent)
	OnBroadcast(b Broadcast)
}

// Options configures a Conn.
type Options struct {
	// Token is sent as a query parameter on the dial URL when non-empty.
	Token string
	// HeartbeatInterval overrides the default 30s cycle.
	HeartbeatInterval time.Duration
	// OnState, when non-nil, is called on liveness transitions. A degraded
	// channel is not an application error; the reconciliation sweep is the
	// recovery path.
	OnState func(State)
	Logger  *slog.Logger
}

// Conn is one persistent connection multiplexing joined topics.
type Conn struct {
	conn     *ws.Conn
	onState  func(State)
	interval time.Duration
	logger   *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	nextRef   uint64
	pending   map[string]chan reply
	handlers  map[string]Handler
	lastState State

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to the channel endpoint and starts the read and heartbeat
// loops.
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	if opts.Token != "" {
		url += "?token=" + opts.Token
	}
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial channel: %w", err)
	}

	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Conn{
		conn:     conn,
		onState:  opts.OnState,
		interval: interval,
		logger:   logger,
		pending:  make(map[string]chan reply),
		handlers: make(map[string]Handler),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	go c.heartbeatLoop()
	c.setState(StateConnected)
	return c, nil
}

// Join subscribes to a topic with the given row filters and installs its
// handler. It returns only after the server acknowledges the join and the
// echoed subscription descriptors validate field-for-field; the returned ids
// are the server-assigned subscription ids, aligned with subs.
func (c *Conn) Join(ctx context.Context, topic string, subs []Subscription, h Handler) ([]int64, error) {
	payload, err := json.Marshal(joinRequest{Subscriptions: subs})
	if err != nil {
		return nil, fmt.Errorf("marshal join: %w", err)
	}

	rep, err := c.call(ctx, frame{Topic: topic, Event: eventJoin, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", topic, err)
	}
	if rep.Status != "ok" {
		return nil, fmt.Errorf("join %s: server replied %q", topic, rep.Status)
	}

	var resp joinResponse
	if err := json.Unmarshal(rep.Response, &resp); err != nil {
		return nil, fmt.Errorf("join %s: decode response: %w", topic, err)
	}
	if err := validateEcho(subs, resp.Subscriptions); err != nil {
		return nil, fmt.Errorf("join %s: %w", topic, err)
	}

	ids := make([]int64, len(resp.Subscriptions))
	for i, sub := range resp.Subscriptions {
		ids[i] = sub.ID
	}

	c.mu.Lock()
	c.handlers[topic] = h
	c.mu.Unlock()
	return ids, nil
}

// Leave unsubscribes from a topic. The handler is removed before the leave
// frame is sent, so no event can be delivered after Leave returns, even if
// the acknowledgement is still in flight.
func (c *Conn) Leave(ctx context.Context, topic string) error {
	c.mu.Lock()
	delete(c.handlers, topic)
	c.mu.Unlock()

	if _, err := c.call(ctx, frame{Topic: topic, Event: eventLeave}); err != nil {
		return fmt.Errorf("leave %s: %w", topic, err)
	}
	return nil
}

// Close tears the connection down. Safe to call more than once and
// concurrently with everything else.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close(ws.StatusNormalClosure, "")
		c.setState(StateClosed)
	})
	return nil
}

// call sends a frame that expects an acknowledgement and waits for it.
func (c *Conn) call(ctx context.Context, f frame) (reply, error) {
	ch := make(chan reply, 1)

	c.mu.Lock()
	c.nextRef++
	f.Ref = strconv.FormatUint(c.nextRef, 10)
	c.pending[f.Ref] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, f.Ref)
		c.mu.Unlock()
	}()

	if err := c.send(ctx, f); err != nil {
		return reply{}, err
	}

	select {
	case rep := <-ch:
		return rep, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-c.closed:
		return reply{}, fmt.Errorf("connection closed")
	}
}

func (c *Conn) send(ctx context.Context, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, ws.MessageText, data)
}

// readLoop delivers inbound frames until the connection dies. Malformed
// frames are skipped, never fatal: one bad event must not take down the
// callback loop.
func (c *Conn) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("skipping malformed frame", "error", err)
			continue
		}

		switch f.Event {
		case eventReply:
			c.mu.Lock()
			ch := c.pending[f.Ref]
			c.mu.Unlock()
			if ch != nil {
				var rep reply
				if err := json.Unmarshal(f.Payload, &rep); err != nil {
					c.logger.Warn("skipping malformed reply", "ref", f.Ref, "error", err)
					continue
				}
				ch <- rep
			}
		case eventRowChange:
			h := c.handler(f.Topic)
			if h == nil {
				continue
			}
			var ev RowEvent
			if err := json.Unmarshal(f.Payload, &ev); err != nil {
				c.logger.Warn("skipping malformed row event", "topic", f.Topic, "error", err)
				continue
			}
			h.OnRow(ev)
		case eventBroadcast:
			h := c.handler(f.Topic)
			if h == nil {
				continue
			}
			var b Broadcast
			if err := json.Unmarshal(f.Payload, &b); err != nil {
				c.logger.Warn("skipping malformed broadcast", "topic", f.Topic, "error", err)
				continue
			}
			h.OnBroadcast(b)
		default:
			c.logger.Debug("ignoring frame", "topic", f.Topic, "event", f.Event)
		}
	}
}

// heartbeatLoop sends a heartbeat every interval and requires the
// acknowledgement within the same cycle, otherwise the channel is reported
// degraded.
func (c *Conn) heartbeatLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.interval)
			_, err := c.call(ctx, frame{Topic: systemTopic, Event: eventHeartbeat})
			cancel()
			if err != nil {
				select {
				case <-c.closed:
					return
				default:
				}
				c.logger.Warn("heartbeat missed", "error", err)
				c.setState(StateDegraded)
			} else {
				c.setState(StateConnected)
			}
		}
	}
}

func (c *Conn) handler(topic string) Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers[topic]
}

// setState reports liveness transitions, collapsing repeats.
func (c *Conn) setState(s State) {
	c.mu.Lock()
	changed := c.lastState != s
	c.lastState = s
	c.mu.Unlock()
	if changed && c.onState != nil {
		c.onState(s)
	}
}
