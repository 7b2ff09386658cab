// Package reconcile recovers state the realtime channel may have silently
// missed while the client was in the background. It refetches the
// authoritative meal and custom-item sets and reconciles presence only:
// last-writer-wins field content is not re-applied here.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/store"
)

// DefaultMinHidden is how long the client must have been hidden before a
// visibility transition triggers a sweep. Brief tab switches stay free.
const DefaultMinHidden = 5 * time.Second

// Fetcher reads the remote source of truth.
type Fetcher interface {
	FetchMeals(ctx context.Context, planID string) ([]model.Meal, error)
	FetchCustomItems(ctx context.Context, planID string) ([]model.CustomItem, error)
	FetchRecipe(ctx context.Context, recipeID string) (*model.Recipe, error)
}

// Sweeper watches visibility transitions and performs the diff-and-merge
// refetch.
type Sweeper struct {
	store     *store.Store
	fetcher   Fetcher
	minHidden time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	hiddenAt time.Time
}

// New creates a sweeper. minHidden <= 0 selects DefaultMinHidden.
func New(st *store.Store, fetcher Fetcher, minHidden time.Duration, logger *slog.Logger) *Sweeper {
	if minHidden <= 0 {
		minHidden = DefaultMinHidden
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     st,
		fetcher:   fetcher,
		minHidden: minHidden,
		logger:    logger,
	}
}

// Hidden records that the client went to the background.
func (s *Sweeper) Hidden() {
	s.mu.Lock()
	s.hiddenAt = time.Now()
	s.mu.Unlock()
}

// Visible handles a foreground transition: when the prior hidden duration
// reaches the threshold, a sweep starts in the background. Sweep failures are
// logged, never surfaced to the caller.
func (s *Sweeper) Visible(ctx context.Context) {
	s.mu.Lock()
	hiddenAt := s.hiddenAt
	s.hiddenAt = time.Time{}
	s.mu.Unlock()

	if hiddenAt.IsZero() || time.Since(hiddenAt) < s.minHidden {
		return
	}
	go func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Warn("reconciliation sweep incomplete", "error", err)
		}
	}()
}

// Sweep refetches meals and custom items for the active plan and reconciles
// id presence against local state. The two refetches fail independently:
// whichever part succeeds is applied. No active plan is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) error {
	snap := s.store.Snapshot()
	if snap.Plan == nil {
		return nil
	}
	planID := snap.Plan.ID

	var errMeals, errItems error
	if meals, err := s.fetcher.FetchMeals(ctx, planID); err != nil {
		errMeals = fmt.Errorf("fetch meals: %w", err)
	} else {
		s.reconcileMeals(ctx, snap.Plan.Meals, meals)
	}
	if items, err := s.fetcher.FetchCustomItems(ctx, planID); err != nil {
		errItems = fmt.Errorf("fetch custom items: %w", err)
	} else {
		s.reconcileCustomItems(snap.CustomItems, items)
	}
	return errors.Join(errMeals, errItems)
}

// reconcileMeals applies remote-only meals as inserts (with recipe backfill)
// and local-only meals as deletes. Ids present on both sides are untouched.
func (s *Sweeper) reconcileMeals(ctx context.Context, local, remote []model.Meal) {
	remoteIDs := make(map[string]bool, len(remote))
	for _, m := range remote {
		remoteIDs[m.ID] = true
	}
	localIDs := make(map[string]bool, len(local))
	for _, m := range local {
		localIDs[m.ID] = true
	}

	recipes := s.store.Snapshot().Recipes
	known := make(map[string]bool, len(recipes))
	for _, r := range recipes {
		known[r.ID] = true
	}

	for _, m := range remote {
		if localIDs[m.ID] {
			continue
		}
		s.store.ApplyRemoteMealInsert(m)
		if m.RecipeID != "" && !known[m.RecipeID] {
			s.backfillRecipe(ctx, m.RecipeID)
			known[m.RecipeID] = true
		}
	}
	for _, m := range local {
		if !remoteIDs[m.ID] {
			s.store.ApplyRemoteMealDelete(m.ID)
		}
	}
}

// reconcileCustomItems mirrors reconcileMeals for the custom-item set.
func (s *Sweeper) reconcileCustomItems(local, remote []model.CustomItem) {
	remoteIDs := make(map[string]bool, len(remote))
	for _, item := range remote {
		remoteIDs[item.ID] = true
	}
	localIDs := make(map[string]bool, len(local))
	for _, item := range local {
		localIDs[item.ID] = true
	}

	for _, item := range remote {
		if !localIDs[item.ID] {
			s.store.ApplyRemoteCustomItemInsert(item)
		}
	}
	for _, item := range local {
		if !remoteIDs[item.ID] {
			s.store.ApplyRemoteCustomItemDelete(item.ID)
		}
	}
}

func (s *Sweeper) backfillRecipe(ctx context.Context, recipeID string) {
	recipe, err := s.fetcher.FetchRecipe(ctx, recipeID)
	if err != nil {
		s.logger.Warn("recipe backfill failed", "recipe_id", recipeID, "error", err)
		return
	}
	s.store.ApplyRemoteRecipeInsert(*recipe)
}
