// Package store holds the client's single source of truth: the active plan,
// shopping-list state, user recipes, the outbound intent queue, and session
// metadata. All access is serialized through one mutex; mutators are
// synchronous and total, so callers never see a half-applied change.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/outbox"
)

// OutboxMaxAge is how old a persisted intent may be before rehydration drops
// it instead of replaying it.
const OutboxMaxAge = 24 * time.Hour

// Projection is the whitelisted subset of store state that survives reloads.
// Session and connectivity fields are deliberately absent.
type Projection struct {
	Plan         *model.Plan        `json:"plan"`
	CheckedItems model.CheckedItems `json:"checked_items"`
	Recipes      []model.Recipe     `json:"recipes"`
	CustomItems  []model.CustomItem `json:"custom_items"`
	Outbox       outbox.Queue       `json:"outbox"`
}

// Persister saves the projection to durable local storage. Save is called
// synchronously from every mutator; implementations should be fast.
type Persister interface {
	Save(p Projection) error
}

// Snapshot is a consistent read of the store for the UI and the dispatcher.
type Snapshot struct {
	Plan         *model.Plan
	CheckedItems model.CheckedItems
	Recipes      []model.Recipe
	CustomItems  []model.CustomItem
	OutboxLen    int

	UserID    string
	UserEmail string
	Role      model.Role
	Online    bool
	Syncing   bool
}

// Store is the reactive state container.
type Store struct {
	mu sync.Mutex

	plan        *model.Plan
	checked     model.CheckedItems
	recipes     []model.Recipe
	customItems []model.CustomItem
	outbox      outbox.Queue

	userID    string
	userEmail string
	role      model.Role
	online    bool
	syncing   bool

	subs      []chan struct{}
	persister Persister
	logger    *slog.Logger
}

// New creates an empty store. persister may be nil (nothing is persisted,
// useful in tests).
func New(persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		checked:   model.CheckedItems{},
		persister: persister,
		logger:    logger,
	}
}

// Subscribe returns a channel that receives a signal after every store
// change. The channel is buffered and coalescing: a slow consumer sees at
// least one signal for any burst of changes.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Snapshot returns a copy of the current state. The plan, slices, and map are
// copied so callers can hold the snapshot across later mutations.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Plan:         clonePlan(s.plan),
		CheckedItems: s.checked.Clone(),
		Recipes:      append([]model.Recipe(nil), s.recipes...),
		CustomItems:  append([]model.CustomItem(nil), s.customItems...),
		OutboxLen:    s.outbox.Len(),
		UserID:       s.userID,
		UserEmail:    s.userEmail,
		Role:         s.role,
		Online:       s.online,
		Syncing:      s.syncing,
	}
}

// Rehydrate loads a persisted projection into the store, evicting outbox
// intents older than OutboxMaxAge. It is meant to run once at startup, before
// any subscriber is attached.
func (s *Store) Rehydrate(p Projection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plan = p.Plan
	s.checked = p.CheckedItems
	if s.checked == nil {
		s.checked = model.CheckedItems{}
	}
	s.recipes = p.Recipes
	s.customItems = p.CustomItems
	s.outbox = p.Outbox

	if dropped := s.outbox.EvictBefore(time.Now().UTC().Add(-OutboxMaxAge)); dropped > 0 {
		s.logger.Info("dropped stale outbox intents", "count", dropped)
	}
	s.persistLocked()
	s.notifyLocked()
}

// DrainOutbox atomically returns and clears every queued intent. Used by the
// dispatcher; the drain itself does not re-notify subscribers.
func (s *Store) DrainOutbox() []outbox.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	intents := s.outbox.Drain()
	if len(intents) > 0 {
		s.persistLocked()
	}
	return intents
}

// SetSession records the signed-in identity and plan role.
func (s *Store) SetSession(userID, email string, role model.Role) {
	s.mu.Lock()
	s.userID = userID
	s.userEmail = email
	s.role = role
	s.notifyLocked()
	s.mu.Unlock()
}

// ClearSession wipes the signed-in identity. Queued intents are left for the
// dispatcher, which discards them when it sees no user.
func (s *Store) ClearSession() {
	s.SetSession("", "", model.RoleNone)
}

// SetOnline records the connectivity flag.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.notifyLocked()
	s.mu.Unlock()
}

// SetSyncing records whether an initial load or join is in flight.
func (s *Store) SetSyncing(syncing bool) {
	s.mu.Lock()
	s.syncing = syncing
	s.notifyLocked()
	s.mu.Unlock()
}

// notifyLocked signals every subscriber without blocking. A subscriber whose
// buffer already holds a pending signal coalesces.
func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Projection returns a copy of the durable state, the same view the
// persister sees. Used for state export.
func (s *Store) Projection() Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectionLocked()
}

func (s *Store) projectionLocked() Projection {
	return Projection{
		Plan:         clonePlan(s.plan),
		CheckedItems: s.checked.Clone(),
		Recipes:      append([]model.Recipe(nil), s.recipes...),
		CustomItems:  append([]model.CustomItem(nil), s.customItems...),
		Outbox:       s.outbox,
	}
}

// persistLocked writes the durable projection. Persistence failures are
// logged, never raised: local state stays authoritative.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.projectionLocked()); err != nil {
		s.logger.Error("persist projection", "error", err)
	}
}

func clonePlan(p *model.Plan) *model.Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Meals = append([]model.Meal(nil), p.Meals...)
	return &out
}
