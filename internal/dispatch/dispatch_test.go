package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/store"
)

// fakeRemote records every endpoint call in order.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRemote) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) SyncPlan(_ context.Context, plan model.Plan) error {
	f.record("sync_plan:" + plan.ID)
	return nil
}

func (f *fakeRemote) AddMeal(_ context.Context, planID string, meal model.Meal) error {
	f.record("add_meal:" + meal.ID)
	return nil
}

func (f *fakeRemote) RemoveMeal(_ context.Context, mealID string) error {
	f.record("remove_meal:" + mealID)
	return nil
}

func (f *fakeRemote) SwapMeal(_ context.Context, mealID, recipeID string) error {
	f.record("swap_meal:" + mealID + ":" + recipeID)
	return nil
}

func (f *fakeRemote) ToggleCheckedItem(_ context.Context, planID, itemID string, checked bool, userEmail string) error {
	f.record("toggle:" + itemID)
	return nil
}

func (f *fakeRemote) ClearCheckedItems(_ context.Context, planID string) error {
	f.record("clear_checked:" + planID)
	return nil
}

func (f *fakeRemote) AddCustomItem(_ context.Context, planID string, item model.CustomItem) error {
	f.record("add_custom:" + item.ID)
	return nil
}

func (f *fakeRemote) RemoveCustomItem(_ context.Context, itemID string) error {
	f.record("remove_custom:" + itemID)
	return nil
}

func (f *fakeRemote) SaveRecipe(_ context.Context, recipe model.Recipe) error {
	f.record("save_recipe:" + recipe.ID)
	return nil
}

func (f *fakeRemote) DeleteRecipe(_ context.Context, recipeID string) error {
	f.record("delete_recipe:" + recipeID)
	return nil
}

func startDispatcher(t *testing.T, st *store.Store) *fakeRemote {
	t.Helper()
	remote := &fakeRemote{}
	d := New(st, remote, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
	return remote
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSignedOutDiscardsQueue(t *testing.T) {
	st := store.New(nil, nil)
	remote := startDispatcher(t, st)

	// Session absent: mutations still apply locally but the queue must be
	// discarded on the next notification without any remote call.
	st.SetOnline(true)
	st.SetPlan(&model.Plan{ID: "p1"})

	waitFor(t, func() bool { return st.Snapshot().OutboxLen == 0 }, "queue never drained")
	time.Sleep(20 * time.Millisecond)
	if calls := remote.snapshot(); len(calls) != 0 {
		t.Fatalf("remote calls fired while signed out: %v", calls)
	}
}

func TestOfflineLeavesQueueUntouched(t *testing.T) {
	st := store.New(nil, nil)
	remote := startDispatcher(t, st)

	st.SetSession("u1", "u1@example.com", model.RoleOwner)
	st.SetOnline(false)
	st.SetPlan(&model.Plan{ID: "p1"})

	time.Sleep(50 * time.Millisecond)
	if n := st.Snapshot().OutboxLen; n < 1 {
		t.Fatalf("queue drained while offline, len %d", n)
	}
	if calls := remote.snapshot(); len(calls) != 0 {
		t.Fatalf("remote calls fired while offline: %v", calls)
	}

	// Coming back online drains what was queued.
	st.SetOnline(true)
	waitFor(t, func() bool { return len(remote.snapshot()) == 1 }, "queue not drained after reconnect")
	if got := remote.snapshot()[0]; got != "sync_plan:p1" {
		t.Errorf("call = %q", got)
	}
}

func TestBatchDispatchesInCreationOrder(t *testing.T) {
	st := store.New(nil, nil)
	st.SetSession("u1", "u1@example.com", model.RoleOwner)
	st.SetOnline(false) // queue up a batch first
	st.SetPlan(&model.Plan{ID: "p1"})
	mealID := st.AddMeal(0, model.Dinner, "r1", 2)
	st.ToggleCheckedItem("i1", true)

	remote := startDispatcher(t, st)
	st.SetOnline(true)

	waitFor(t, func() bool { return len(remote.snapshot()) == 3 }, "batch not fully dispatched")
	calls := remote.snapshot()
	want := []string{"sync_plan:p1", "add_meal:" + mealID, "toggle:i1"}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], w)
		}
	}
	if n := st.Snapshot().OutboxLen; n != 0 {
		t.Errorf("queue len after dispatch = %d", n)
	}
}

func TestEveryIntentKindHasAnEndpoint(t *testing.T) {
	st := store.New(nil, nil)
	st.SetSession("u1", "u1@example.com", model.RoleOwner)
	st.SetOnline(false)

	st.SetPlan(&model.Plan{ID: "p1"})
	st.SaveRecipe(model.Recipe{ID: "r1"})
	st.SaveRecipe(model.Recipe{ID: "r2"})
	mealID := st.AddMeal(0, model.Dinner, "r1", 2)
	st.SwapMeal(mealID, "r2")
	st.ToggleCheckedItem("i1", true)
	st.ClearCheckedItems()
	customID := st.AddCustomItem("salt", "1", "tsp", "Pantry")
	st.RemoveCustomItem(customID)
	st.RemoveMeal(mealID)
	st.DeleteRecipe("r2")

	queued := st.Snapshot().OutboxLen
	remote := startDispatcher(t, st)
	st.SetOnline(true)

	waitFor(t, func() bool { return len(remote.snapshot()) == queued }, "not every intent dispatched")
}
