package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/hollowoak/larder/internal/merge"
	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/outbox"
)

// Local mutators. Every durable user action both applies optimistically and
// appends the intent that replays it remotely; the coupling lives here so no
// caller can change state without scheduling synchronization. Remote-origin
// changes go through apply.go instead and never enqueue.

// SetPlan replaces the active plan wholesale and schedules a full plan sync.
// Used when a plan is generated or reset locally. A nil plan is a no-op; use
// ClearPlan to drop the plan.
func (s *Store) SetPlan(plan *model.Plan) {
	if plan == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	s.plan = clonePlan(plan)
	s.checked = model.CheckedItems{}
	s.outbox.Push(outbox.SyncPlan{Plan: *clonePlan(plan)})
	s.persistLocked()
	s.notifyLocked()
}

// ClearPlan drops the active plan and everything scoped to it. Local only:
// remote plan deletion is the owner's direct action, not a queued intent.
func (s *Store) ClearPlan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = nil
	s.checked = model.CheckedItems{}
	s.customItems = nil
	s.role = model.RoleNone
	s.persistLocked()
	s.notifyLocked()
}

// AdoptPlan installs a plan the user just joined. The remote already has it,
// so nothing is enqueued.
func (s *Store) AdoptPlan(plan *model.Plan, role model.Role) {
	if plan == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = clonePlan(plan)
	s.checked = model.CheckedItems{}
	s.role = role
	s.persistLocked()
	s.notifyLocked()
}

// AddMeal creates a meal in the given slot and returns its id. No active plan
// or an invalid meal type is a no-op returning "".
func (s *Store) AddMeal(dayIndex int, mealType model.MealType, recipeID string, servings int) string {
	if dayIndex < 0 || dayIndex > 6 || !mealType.Valid() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return ""
	}

	meal := model.Meal{
		ID:       uuid.NewString(),
		DayIndex: dayIndex,
		MealType: mealType,
		RecipeID: recipeID,
		Servings: servings,
	}
	s.plan.Meals = merge.InsertMeal(s.plan.Meals, meal)
	s.checked = model.CheckedItems{}
	s.outbox.Push(outbox.AddMeal{PlanID: s.plan.ID, Meal: meal})
	s.persistLocked()
	s.notifyLocked()
	return meal.ID
}

// RemoveMeal deletes a meal by id. Unknown id or no plan is a no-op.
func (s *Store) RemoveMeal(mealID string) {
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
	s.outbox.Push(outbox.RemoveMeal{MealID: mealID})
	s.persistLocked()
	s.notifyLocked()
}

// SwapMeal changes a meal's recipe, picking randomly from the store's recipes
// when recipeID is merge.RandomRecipe. Unknown meal id, no plan, or an empty
// candidate pool is a no-op.
func (s *Store) SwapMeal(mealID, recipeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	swapped := merge.SwapMeal(s.plan, mealID, recipeID, s.recipes)
	if swapped == s.plan {
		return
	}

	s.plan = swapped
	s.checked = model.CheckedItems{}
	chosen := recipeID
	for _, m := range swapped.Meals {
		if m.ID == mealID {
			chosen = m.RecipeID
			break
		}
	}
	s.outbox.Push(outbox.SwapMeal{MealID: mealID, RecipeID: chosen})
	s.persistLocked()
	s.notifyLocked()
}

// ToggleCheckedItem marks a shopping-list item checked (by the current user's
// email) or unchecked. No active plan is a no-op.
func (s *Store) ToggleCheckedItem(itemID string, checked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return
	}

	if checked {
		s.checked[itemID] = s.userEmail
	} else {
		delete(s.checked, itemID)
	}
	s.outbox.Push(outbox.ToggleCheckedItem{
		PlanID:    s.plan.ID,
		ItemID:    itemID,
		Checked:   checked,
		UserEmail: s.userEmail,
	})
	s.persistLocked()
	s.notifyLocked()
}

// ClearCheckedItems unchecks everything on the active plan's shopping list.
func (s *Store) ClearCheckedItems() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return
	}
	s.checked = model.CheckedItems{}
	s.outbox.Push(outbox.ClearCheckedItems{PlanID: s.plan.ID})
	s.persistLocked()
	s.notifyLocked()
}

// AddCustomItem appends a hand-entered shopping-list item and returns its id.
// No active plan is a no-op returning "".
func (s *Store) AddCustomItem(ingredient, quantity, unit, category string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return ""
	}

	item := model.CustomItem{
		ID:         model.CustomItemIDPrefix + uuid.NewString(),
		Ingredient: ingredient,
		Quantity:   quantity,
		Unit:       unit,
		Category:   category,
	}
	s.customItems = merge.InsertCustomItem(s.customItems, item)
	s.outbox.Push(outbox.AddCustomItem{PlanID: s.plan.ID, Item: item})
	s.persistLocked()
	s.notifyLocked()
	return item.ID
}

// RemoveCustomItem deletes a custom item by id. Absent id is a no-op.
func (s *Store) RemoveCustomItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := merge.RemoveCustomItem(s.customItems, itemID)
	if len(items) == len(s.customItems) {
		return
	}
	s.customItems = items
	delete(s.checked, itemID)
	s.outbox.Push(outbox.RemoveCustomItem{ItemID: itemID})
	s.persistLocked()
	s.notifyLocked()
}

// SaveRecipe upserts a user recipe, assigning an id when absent, and returns
// the id.
func (s *Store) SaveRecipe(r model.Recipe) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if updated := merge.InsertRecipe(s.recipes, r); len(updated) != len(s.recipes) {
		s.recipes = updated
	} else {
		for i := range s.recipes {
			if s.recipes[i].ID == r.ID {
				s.recipes[i] = r
				break
			}
		}
	}
	s.outbox.Push(outbox.SaveRecipe{Recipe: r})
	s.persistLocked()
	s.notifyLocked()
	return r.ID
}

// DeleteRecipe removes a user recipe by id. Absent id is a no-op.
func (s *Store) DeleteRecipe(recipeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes := merge.RemoveRecipe(s.recipes, recipeID)
	if len(recipes) == len(s.recipes) {
		return
	}
	s.recipes = recipes
	s.outbox.Push(outbox.DeleteRecipe{RecipeID: recipeID})
	s.persistLocked()
	s.notifyLocked()
}
