// Package merge holds the pure reducers shared by local optimistic mutations
// and inbound remote events. Every function is idempotent with respect to id
// presence and returns its input unchanged (same backing slice) when there is
// nothing to do, so callers can detect no-ops by comparison.
package merge

import "github.com/hollowoak/larder/internal/model"

// InsertMeal adds m unless a meal with the same id already exists.
func InsertMeal(meals []model.Meal, m model.Meal) []model.Meal {
	for _, existing := range meals {
		if existing.ID == m.ID {
			return meals
		}
	}
	out := make([]model.Meal, len(meals), len(meals)+1)
	copy(out, meals)
	return append(out, m)
}

// UpdateMeal replaces the meal with m's id. Unknown id is a no-op.
func UpdateMeal(meals []model.Meal, m model.Meal) []model.Meal {
	for i, existing := range meals {
		if existing.ID == m.ID {
			out := make([]model.Meal, len(meals))
			copy(out, meals)
			out[i] = m
			return out
		}
	}
	return meals
}

// DeleteMeal removes the meal with the given id. Absent id is a no-op.
func DeleteMeal(meals []model.Meal, id string) []model.Meal {
	for i, existing := range meals {
		if existing.ID == id {
			out := make([]model.Meal, 0, len(meals)-1)
			out = append(out, meals[:i]...)
			return append(out, meals[i+1:]...)
		}
	}
	return meals
}

// InsertCustomItem adds item unless its id already exists.
func InsertCustomItem(items []model.CustomItem, item model.CustomItem) []model.CustomItem {
	for _, existing := range items {
		if existing.ID == item.ID {
			return items
		}
	}
	out := make([]model.CustomItem, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}

// RemoveCustomItem removes the item with the given id. Absent id is a no-op.
func RemoveCustomItem(items []model.CustomItem, id string) []model.CustomItem {
	for i, existing := range items {
		if existing.ID == id {
			out := make([]model.CustomItem, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...)
		}
	}
	return items
}

// InsertRecipe adds r unless its id already exists. This is the backfill path
// for recipes referenced by meals that arrive before the recipe itself.
func InsertRecipe(recipes []model.Recipe, r model.Recipe) []model.Recipe {
	for _, existing := range recipes {
		if existing.ID == r.ID {
			return recipes
		}
	}
	out := make([]model.Recipe, len(recipes), len(recipes)+1)
	copy(out, recipes)
	return append(out, r)
}

// RemoveRecipe removes the recipe with the given id. Absent id is a no-op.
func RemoveRecipe(recipes []model.Recipe, id string) []model.Recipe {
	for i, existing := range recipes {
		if existing.ID == id {
			out := make([]model.Recipe, 0, len(recipes)-1)
			out = append(out, recipes[:i]...)
			return append(out, recipes[i+1:]...)
		}
	}
	return recipes
}
