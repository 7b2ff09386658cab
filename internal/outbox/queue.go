package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Queue is an ordered log of pending intents. It is not safe for concurrent
// use on its own; the owning store serializes all access.
type Queue struct {
	intents []Intent
}

// Push appends intent, stamping it with the current time.
func (q *Queue) Push(intent Intent) {
	q.intents = append(q.intents, intent.stamp(time.Now().UTC()))
}

// Drain returns every queued intent in creation order and clears the queue.
// It never returns a partial batch.
func (q *Queue) Drain() []Intent {
	out := q.intents
	q.intents = nil
	return out
}

// EvictBefore drops intents stamped before cutoff, keeping relative order of
// the survivors. Used at rehydration to discard stale mutations rather than
// replay them against a possibly-incompatible remote state.
func (q *Queue) EvictBefore(cutoff time.Time) int {
	kept := q.intents[:0]
	for _, intent := range q.intents {
		if !intent.At().Before(cutoff) {
			kept = append(kept, intent)
		}
	}
	dropped := len(q.intents) - len(kept)
	q.intents = kept
	return dropped
}

// Len returns the number of queued intents.
func (q *Queue) Len() int { return len(q.intents) }

// envelope is the persisted form of one intent.
type envelope struct {
	Kind   Kind            `json:"kind"`
	Intent json.RawMessage `json:"intent"`
}

// MarshalJSON encodes the queue as an ordered list of kind-tagged envelopes.
func (q Queue) MarshalJSON() ([]byte, error) {
	envs := make([]envelope, 0, len(q.intents))
	for _, intent := range q.intents {
		raw, err := json.Marshal(intent)
		if err != nil {
			return nil, fmt.Errorf("marshal intent %s: %w", intent.Kind(), err)
		}
		envs = append(envs, envelope{Kind: intent.Kind(), Intent: raw})
	}
	return json.Marshal(envs)
}

// UnmarshalJSON decodes a persisted queue. Envelopes with an unknown kind are
// dropped silently so older clients can load state written by newer ones.
func (q *Queue) UnmarshalJSON(data []byte) error {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return fmt.Errorf("unmarshal outbox: %w", err)
	}

	q.intents = nil
	for _, env := range envs {
		intent, err := decodeIntent(env)
		if err != nil {
			return err
		}
		if intent != nil {
			q.intents = append(q.intents, intent)
		}
	}
	return nil
}

func decodeIntent(env envelope) (Intent, error) {
	switch env.Kind {
	case KindSyncPlan:
		return decodeAs[SyncPlan](env)
	case KindAddMeal:
		return decodeAs[AddMeal](env)
	case KindRemoveMeal:
		return decodeAs[RemoveMeal](env)
	case KindSwapMeal:
		return decodeAs[SwapMeal](env)
	case KindToggleCheckedItem:
		return decodeAs[ToggleCheckedItem](env)
	case KindClearCheckedItems:
		return decodeAs[ClearCheckedItems](env)
	case KindAddCustomItem:
		return decodeAs[AddCustomItem](env)
	case KindRemoveCustomItem:
		return decodeAs[RemoveCustomItem](env)
	case KindSaveRecipe:
		return decodeAs[SaveRecipe](env)
	case KindDeleteRecipe:
		return decodeAs[DeleteRecipe](env)
	default:
		return nil, nil
	}
}

func decodeAs[T Intent](env envelope) (Intent, error) {
	var v T
	if err := json.Unmarshal(env.Intent, &v); err != nil {
		return nil, fmt.Errorf("unmarshal intent %s: %w", env.Kind, err)
	}
	return v, nil
}
