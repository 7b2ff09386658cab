package merge

import (
	"math/rand/v2"

	"github.com/hollowoak/larder/internal/model"
)

// RandomRecipe asks SwapMeal to pick a replacement recipe itself.
const RandomRecipe = ""

// SwapMeal returns a copy of plan in which the meal with mealID points at a
// different recipe. Only RecipeID changes; id, slot, and servings are kept.
//
// With RandomRecipe the replacement is drawn from recipes not already used by
// another meal of the same meal type in the plan; if every recipe is in use,
// any recipe other than the current one qualifies. No candidates at all, an
// unknown meal id, or a nil plan return the plan pointer unchanged so callers
// can detect the no-op cheaply.
func SwapMeal(plan *model.Plan, mealID, recipeID string, recipes []model.Recipe) *model.Plan {
	if plan == nil {
		return plan
	}

	idx := -1
	for i, m := range plan.Meals {
		if m.ID == mealID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return plan
	}
	current := plan.Meals[idx]

	next := recipeID
	if next == RandomRecipe {
		next = pickRecipe(plan, current, recipes)
		if next == "" {
			return plan
		}
	}

	meals := make([]model.Meal, len(plan.Meals))
	copy(meals, plan.Meals)
	meals[idx].RecipeID = next

	out := *plan
	out.Meals = meals
	return &out
}

// pickRecipe selects a random replacement recipe id, or "" when no recipe
// other than the current one exists.
func pickRecipe(plan *model.Plan, current model.Meal, recipes []model.Recipe) string {
	used := make(map[string]bool, len(plan.Meals))
	for _, m := range plan.Meals {
		if m.MealType == current.MealType {
			used[m.RecipeID] = true
		}
	}

	var fresh, fallback []string
	for _, r := range recipes {
		if r.ID == current.RecipeID {
			continue
		}
		fallback = append(fallback, r.ID)
		if !used[r.ID] {
			fresh = append(fresh, r.ID)
		}
	}

	pool := fresh
	if len(pool) == 0 {
		pool = fallback
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))]
}
