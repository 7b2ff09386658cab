// Package engine wires the store, dispatcher, realtime channels, and
// reconciliation sweep into one lifecycle the embedding application drives
// with a handful of calls: token changes, connectivity changes, visibility
// transitions, and plan join/leave.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hollowoak/larder/internal/channel"
	"github.com/hollowoak/larder/internal/dispatch"
	"github.com/hollowoak/larder/internal/export"
	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/reconcile"
	"github.com/hollowoak/larder/internal/remote"
	"github.com/hollowoak/larder/internal/session"
	"github.com/hollowoak/larder/internal/shopping"
	"github.com/hollowoak/larder/internal/store"
)

// Options configures an Engine.
type Options struct {
	ChannelURL        string
	MinHidden         time.Duration
	HeartbeatInterval time.Duration
}

// Engine owns the sync lifecycle around one store.
type Engine struct {
	opts       Options
	store      *store.Store
	remote     *remote.Client
	dispatcher *dispatch.Dispatcher
	sweeper    *reconcile.Sweeper
	logger     *slog.Logger

	// loadMu serializes the initial load against plan joins: a join must not
	// be overwritten by a concurrently-completing load.
	loadMu sync.Mutex

	mu       sync.Mutex
	conn     *channel.Conn
	channels *channel.PlanChannels
	token    string
	identity session.Identity
	degraded bool
}

// New creates an engine around the given store and remote client.
func New(opts Options, st *store.Store, rc *remote.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts:       opts,
		store:      st,
		remote:     rc,
		dispatcher: dispatch.New(st, rc, logger.With("component", "dispatch")),
		sweeper:    reconcile.New(st, rc, opts.MinHidden, logger.With("component", "reconcile")),
		logger:     logger,
	}
}

// Store exposes the underlying state container for readers.
func (e *Engine) Store() *store.Store { return e.store }

// ShoppingList derives the current categorized shopping list from a snapshot
// of the store.
func (e *Engine) ShoppingList() []shopping.Item {
	snap := e.store.Snapshot()
	return shopping.BuildList(snap.Plan, snap.Recipes, snap.CustomItems, snap.CheckedItems)
}

// Start runs the dispatcher and, when a session and plan are already present,
// opens realtime delivery. It returns immediately; ctx cancellation stops the
// dispatcher and Stop tears down the channels.
func (e *Engine) Start(ctx context.Context) {
	go e.dispatcher.Run(ctx)

	snap := e.store.Snapshot()
	if snap.UserID != "" && snap.Plan != nil {
		if err := e.openChannels(ctx, snap.Plan.ID); err != nil {
			e.logger.Warn("realtime unavailable at startup", "error", err)
		}
		go e.initialLoad(ctx)
	}
}

// Stop closes realtime delivery.
func (e *Engine) Stop(ctx context.Context) {
	e.closeChannels(ctx)
}

// SetToken installs (or, with "", clears) the access token. The identity
// derived from the token gates the dispatcher and filters channel echoes.
func (e *Engine) SetToken(ctx context.Context, token string) error {
	if token == "" {
		e.mu.Lock()
		e.token = ""
		e.identity = session.Identity{}
		e.mu.Unlock()
		e.remote.ClearAuth()
		e.store.ClearSession()
		e.closeChannels(ctx)
		return nil
	}

	ident, err := session.ParseIdentity(token)
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}

	e.mu.Lock()
	e.token = token
	e.identity = ident
	e.mu.Unlock()
	e.remote.SetAuth(token, ident.UserID, ident.Email)

	role := e.store.Snapshot().Role
	e.store.SetSession(ident.UserID, ident.Email, role)
	return nil
}

// SetOnline records connectivity. Coming back online nudges the dispatcher
// (via the store notification) to drain anything queued while offline.
func (e *Engine) SetOnline(online bool) {
	e.store.SetOnline(online)
}

// Hidden records a background transition.
func (e *Engine) Hidden() { e.sweeper.Hidden() }

// Visible records a foreground transition, possibly triggering a sweep.
func (e *Engine) Visible(ctx context.Context) { e.sweeper.Visible(ctx) }

// Resync forces a full reconciliation sweep immediately.
func (e *Engine) Resync(ctx context.Context) error {
	return e.sweeper.Sweep(ctx)
}

// JoinPlan adds the user to a shared plan and adopts it wholesale. It waits
// for any in-flight initial load first, so a stale load cannot clobber the
// just-joined state.
func (e *Engine) JoinPlan(ctx context.Context, planID string) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.store.SetSyncing(true)
	defer e.store.SetSyncing(false)

	plan, err := e.remote.JoinPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("join plan: %w", err)
	}
	e.store.AdoptPlan(plan, model.RoleMember)

	if err := e.openChannels(ctx, planID); err != nil {
		e.logger.Warn("realtime unavailable after join", "error", err)
	}
	return nil
}

// LeavePlan removes the user's membership and clears the plan locally.
func (e *Engine) LeavePlan(ctx context.Context) error {
	snap := e.store.Snapshot()
	if snap.Plan == nil {
		return nil
	}
	if err := e.remote.LeavePlan(ctx, snap.Plan.ID); err != nil {
		return fmt.Errorf("leave plan: %w", err)
	}
	e.closeChannels(ctx)
	e.store.ClearPlan()
	return nil
}

// Export writes the durable state to a passphrase-protected file.
func (e *Engine) Export(path, passphrase string) error {
	return export.Write(path, e.store.Projection(), passphrase)
}

// Import replaces local state with a previously exported file. The outbox in
// the file goes through the same staleness eviction as a normal reload, and a
// sweep afterwards brings the imported plan back in line with the server.
func (e *Engine) Import(ctx context.Context, path, passphrase string) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	p, err := export.Read(path, passphrase)
	if err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	e.store.Rehydrate(p)

	if snap := e.store.Snapshot(); snap.Plan != nil && snap.UserID != "" {
		if err := e.openChannels(ctx, snap.Plan.ID); err != nil {
			e.logger.Warn("realtime unavailable after import", "error", err)
		}
		if err := e.sweeper.Sweep(ctx); err != nil {
			e.logger.Warn("post-import sweep incomplete", "error", err)
		}
	}
	return nil
}

// initialLoad brings local state up to date with the remote source of truth
// at startup, reusing the reconciliation sweep's diff-and-merge.
func (e *Engine) initialLoad(ctx context.Context) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	e.store.SetSyncing(true)
	defer e.store.SetSyncing(false)

	if err := e.sweeper.Sweep(ctx); err != nil {
		e.logger.Warn("initial load incomplete", "error", err)
	}
}

// openChannels (re)opens the three realtime topics for planID. Any previous
// subscription is left first; leaving detaches handlers before teardown, so
// the new subscription cannot see double-delivery.
func (e *Engine) openChannels(ctx context.Context, planID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.channels != nil {
		e.channels.Close(ctx)
		e.channels = nil
	}
	if e.conn == nil {
		conn, err := channel.Dial(ctx, e.opts.ChannelURL, channel.Options{
			Token:             e.token,
			HeartbeatInterval: e.opts.HeartbeatInterval,
			OnState:           e.onChannelState,
			Logger:            e.logger.With("component", "channel"),
		})
		if err != nil {
			return err
		}
		e.conn = conn
	}

	channels, err := channel.OpenPlanChannels(ctx, e.conn, planID, e.identity.UserID, e.store, e.remote, e.logger.With("component", "channel"))
	if err != nil {
		return err
	}
	e.channels = channels
	return nil
}

func (e *Engine) closeChannels(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.channels != nil {
		e.channels.Close(ctx)
		e.channels = nil
	}
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}

// onChannelState reacts to liveness transitions. Recovering from a degraded
// channel means events may have been missed, so a sweep runs.
func (e *Engine) onChannelState(s channel.State) {
	e.mu.Lock()
	wasDegraded := e.degraded
	e.degraded = s == channel.StateDegraded
	e.mu.Unlock()

	if s == channel.StateConnected && wasDegraded {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := e.sweeper.Sweep(ctx); err != nil {
				e.logger.Warn("post-recovery sweep incomplete", "error", err)
			}
		}()
	}
}
