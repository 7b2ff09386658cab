package store

import (
	"github.com/hollowoak/larder/internal/merge"
	"github.com/hollowoak/larder/internal/model"
)

// Remote-origin appliers. These merge changes delivered by the realtime
// channel or the reconciliation sweep. They are idempotent and never touch
// the outbox: enqueueing here would replay another client's write forever.

// ApplyRemoteMealInsert merges a meal another client added. Inserting an id
// already present is a no-op.
func (s *Store) ApplyRemoteMealInsert(m model.Meal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return
	}
	meals := merge.InsertMeal(s.plan.Meals, m)
	if len(meals) == len(s.plan.Meals) {
		return
	}
	s.plan.Meals = meals
	s.checked = model.CheckedItems{}
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteMealUpdate merges a meal another client changed. An unknown id
// is a no-op.
func (s *Store) ApplyRemoteMealUpdate(m model.Meal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return
	}
	meals := merge.UpdateMeal(s.plan.Meals, m)
	if len(meals) == len(s.plan.Meals) {
		same := true
		for i := range meals {
			if meals[i] != s.plan.Meals[i] {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	s.plan.Meals = meals
	s.checked = model.CheckedItems{}
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteMealDelete removes a meal another client deleted. An absent id
// is a no-op.
func (s *Store) ApplyRemoteMealDelete(mealID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return
	}
	meals := merge.DeleteMeal(s.plan.Meals, mealID)
	if len(meals) == len(s.plan.Meals) {
		return
	}
	s.plan.Meals = meals
	s.checked = model.CheckedItems{}
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemotePlanUpdate merges plan-level fields (preferences) for the active
// plan. A different or absent plan id is a no-op; meals are not touched here,
// they travel as their own row events.
func (s *Store) ApplyRemotePlanUpdate(p model.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil || s.plan.ID != p.ID {
		return
	}
	s.plan.Preferences = p.Preferences
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemotePlanDelete clears everything when the owner deleted the plan (or
// the user's membership was revoked).
func (s *Store) ApplyRemotePlanDelete(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil || s.plan.ID != planID {
		return
	}
	s.plan = nil
	s.checked = model.CheckedItems{}
	s.customItems = nil
	s.role = model.RoleNone
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteCustomItemInsert merges a custom item another client added.
func (s *Store) ApplyRemoteCustomItemInsert(item model.CustomItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := merge.InsertCustomItem(s.customItems, item)
	if len(items) == len(s.customItems) {
		return
	}
	s.customItems = items
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteCustomItemDelete removes a custom item another client deleted.
func (s *Store) ApplyRemoteCustomItemDelete(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := merge.RemoveCustomItem(s.customItems, itemID)
	if len(items) == len(s.customItems) {
		return
	}
	s.customItems = items
	delete(s.checked, itemID)
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteRecipeInsert merges a recipe fetched as backfill or saved by
// another client. Dedup by id.
func (s *Store) ApplyRemoteRecipeInsert(r model.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipes := merge.InsertRecipe(s.recipes, r)
	if len(recipes) == len(s.recipes) {
		return
	}
	s.recipes = recipes
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteRecipeDelete removes a recipe another client deleted.
func (s *Store) ApplyRemoteRecipeDelete(recipeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipes := merge.RemoveRecipe(s.recipes, recipeID)
	if len(recipes) == len(s.recipes) {
		return
	}
	s.recipes = recipes
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteCheck marks an item checked by the given identity. Re-checking
// an already-checked item just records the latest checker.
func (s *Store) ApplyRemoteCheck(itemID, checkedBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.checked[itemID]; ok && cur == checkedBy {
		return
	}
	s.checked[itemID] = checkedBy
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteUncheck clears an item's checked mark. Unchecking an unchecked
// item is a no-op.
func (s *Store) ApplyRemoteUncheck(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checked[itemID]; !ok {
		return
	}
	delete(s.checked, itemID)
	s.persistLocked()
	s.notifyLocked()
}

// ApplyRemoteClearChecked empties the checked-items map.
func (s *Store) ApplyRemoteClearChecked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.checked) == 0 {
		return
	}
	s.checked = model.CheckedItems{}
	s.persistLocked()
	s.notifyLocked()
}
