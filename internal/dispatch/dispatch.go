// Package dispatch drains the store's outbox to the remote mutation
// endpoints. It is a pure reaction to store change notifications; durability
// lives in the remote idempotent upserts, not in an in-process retry loop.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/outbox"
	"github.com/hollowoak/larder/internal/store"
)

// Remote is the set of mutation endpoints an intent can replay against. Every
// call must be an idempotent upsert or delete by id server-side.
type Remote interface {
	SyncPlan(ctx context.Context, plan model.Plan) error
	AddMeal(ctx context.Context, planID string, meal model.Meal) error
	RemoveMeal(ctx context.Context, mealID string) error
	SwapMeal(ctx context.Context, mealID, recipeID string) error
	ToggleCheckedItem(ctx context.Context, planID, itemID string, checked bool, userEmail string) error
	ClearCheckedItems(ctx context.Context, planID string) error
	AddCustomItem(ctx context.Context, planID string, item model.CustomItem) error
	RemoveCustomItem(ctx context.Context, itemID string) error
	SaveRecipe(ctx context.Context, recipe model.Recipe) error
	DeleteRecipe(ctx context.Context, recipeID string) error
}

// Dispatcher watches the store and drains the outbox whenever the gating
// conditions hold.
type Dispatcher struct {
	store  *store.Store
	remote Remote
	notify <-chan struct{}
	logger *slog.Logger
}

// New creates a dispatcher subscribed to st.
func New(st *store.Store, remote Remote, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:  st,
		remote: remote,
		notify: st.Subscribe(),
		logger: logger,
	}
}

// Run processes store notifications until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
			d.react(ctx)
		}
	}
}

// react applies the gating rules from one store notification. Signed out
// drains-and-discards so the queue cannot grow without bound; offline leaves
// the queue untouched for a later drain; otherwise the batch is sent
// asynchronously, so a new batch may start before this one's calls resolve.
// Relative order across batches is therefore not guaranteed, which the
// idempotent per-id endpoints make safe.
func (d *Dispatcher) react(ctx context.Context) {
	snap := d.store.Snapshot()
	if snap.OutboxLen == 0 {
		return
	}
	if snap.UserID == "" {
		discarded := d.store.DrainOutbox()
		d.logger.Info("discarded queued intents while signed out", "count", len(discarded))
		return
	}
	if !snap.Online {
		return
	}

	intents := d.store.DrainOutbox()
	go d.send(ctx, intents)
}

// send dispatches one batch in FIFO creation order. Failures are logged and
// the intent is not re-queued; the reconciliation sweep repairs presence
// divergence later.
func (d *Dispatcher) send(ctx context.Context, intents []outbox.Intent) {
	for _, intent := range intents {
		if err := d.sendOne(ctx, intent); err != nil {
			d.logger.Error("dispatch intent", "kind", intent.Kind(), "error", err)
		}
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, intent outbox.Intent) error {
	switch i := intent.(type) {
	case outbox.SyncPlan:
		return d.remote.SyncPlan(ctx, i.Plan)
	case outbox.AddMeal:
		return d.remote.AddMeal(ctx, i.PlanID, i.Meal)
	case outbox.RemoveMeal:
		return d.remote.RemoveMeal(ctx, i.MealID)
	case outbox.SwapMeal:
		return d.remote.SwapMeal(ctx, i.MealID, i.RecipeID)
	case outbox.ToggleCheckedItem:
		return d.remote.ToggleCheckedItem(ctx, i.PlanID, i.ItemID, i.Checked, i.UserEmail)
	case outbox.ClearCheckedItems:
		return d.remote.ClearCheckedItems(ctx, i.PlanID)
	case outbox.AddCustomItem:
		return d.remote.AddCustomItem(ctx, i.PlanID, i.Item)
	case outbox.RemoveCustomItem:
		return d.remote.RemoveCustomItem(ctx, i.ItemID)
	case outbox.SaveRecipe:
		return d.remote.SaveRecipe(ctx, i.Recipe)
	case outbox.DeleteRecipe:
		return d.remote.DeleteRecipe(ctx, i.RecipeID)
	default:
		// The intent set is sealed; reaching this means a new kind was added
		// without a dispatcher case.
		d.logger.Error("unhandled intent kind", "kind", intent.Kind())
		return nil
	}
}
