// Package channel implements the client side of the pub/sub-over-websocket
// protocol used for realtime row-change and broadcast delivery. One
// connection multiplexes any number of logical topics; each topic is joined
// with a list of row-filter subscriptions the server must echo back
// field-for-field before the topic is considered live.
package channel

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame events.
const (
	eventJoin      = "join"
	eventReply     = "reply"
	eventHeartbeat = "heartbeat"
	eventLeave     = "leave"
	eventRowChange = "row_change"
	eventBroadcast = "broadcast"
)

// systemTopic carries heartbeats, which belong to the connection rather than
// any joined topic.
const systemTopic = "system"

// Row event types.
const (
	RowInsert = "insert"
	RowUpdate = "update"
	RowDelete = "delete"
)

// frame is the wire envelope for every message in both directions.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subscription is one row-filter a topic watches.
type Subscription struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// assignedSubscription is a Subscription echoed back by the server with its
// server-assigned id.
type assignedSubscription struct {
	ID int64 `json:"id"`
	Subscription
}

type joinRequest struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

type joinResponse struct {
	Subscriptions []assignedSubscription `json:"subscriptions"`
}

// reply is the payload of an acknowledgement frame.
type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

// RowEvent is one insert/update/delete delivered for a joined topic.
type RowEvent struct {
	SubscriptionIDs []int64         `json:"ids"`
	Type            string          `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Broadcast is a free-form named event delivered for a joined topic, not tied
// to any row subscription.
type Broadcast struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// validateEcho checks the join acknowledgement against what was requested:
// same count, same order, every descriptor field identical, and a
// server-assigned id on each.
func validateEcho(want []Subscription, got []assignedSubscription) error {
	if len(got) != len(want) {
		return fmt.Errorf("join echo has %d subscriptions, requested %d", len(got), len(want))
	}
	for i, g := range got {
		if g.Subscription != want[i] {
			return fmt.Errorf("join echo mismatch at %d: got %+v, want %+v", i, g.Subscription, want[i])
		}
		if g.ID == 0 {
			return fmt.Errorf("join echo at %d has no assigned id", i)
		}
	}
	return nil
}
