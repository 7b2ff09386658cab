// Package shopping derives the week's shopping list from the active plan.
// The list itself is never stored or synced: it is a pure function of the
// plan's meals, the known recipes, the hand-added custom items, and the
// shared checked-item map.
package shopping

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hollowoak/larder/internal/model"
)

// IngredientIDPrefix distinguishes items derived from recipe ingredients
// from hand-added custom items.
const IngredientIDPrefix = "item-"

// Item is one line of the derived shopping list.
type Item struct {
	ID        string
	Name      string
	Quantity  string
	Unit      string
	Category  string
	Custom    bool
	Checked   bool
	CheckedBy string
}

// IngredientID returns the stable id a recipe ingredient contributes to the
// shopping list. The same ingredient name always maps to the same id, so
// checked state survives plan edits that keep the ingredient in play.
func IngredientID(name string) string {
	return IngredientIDPrefix + slug(name)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// BuildList aggregates the shopping list for a plan. Ingredients from every
// planned meal's recipe are merged per ingredient; custom items follow as-is.
// Items are ordered by category, then name, for stable display. A nil plan
// yields only the custom items.
func BuildList(plan *model.Plan, recipes []model.Recipe, custom []model.CustomItem, checked model.CheckedItems) []Item {
	byID := make(map[string]*Item)
	var order []string

	if plan != nil {
		known := make(map[string]model.Recipe, len(recipes))
		for _, r := range recipes {
			known[r.ID] = r
		}
		for _, meal := range plan.Meals {
			r, ok := known[meal.RecipeID]
			if !ok {
				continue
			}
			for _, ing := range r.Ingredients {
				id := IngredientID(ing.Name)
				if existing, ok := byID[id]; ok {
					mergeInto(existing, ing)
					continue
				}
				byID[id] = &Item{
					ID:       id,
					Name:     ing.Name,
					Quantity: ing.Quantity,
					Unit:     ing.Unit,
					Category: categoryFor(ing.Name, ing.Category),
				}
				order = append(order, id)
			}
		}
	}

	for _, c := range custom {
		if _, ok := byID[c.ID]; ok {
			continue
		}
		byID[c.ID] = &Item{
			ID:       c.ID,
			Name:     c.Ingredient,
			Quantity: c.Quantity,
			Unit:     c.Unit,
			Category: categoryFor(c.Ingredient, c.Category),
			Custom:   true,
		}
		order = append(order, c.ID)
	}

	out := make([]Item, 0, len(order))
	for _, id := range order {
		item := *byID[id]
		if by, ok := checked[item.ID]; ok {
			item.Checked = true
			item.CheckedBy = by
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func categoryFor(name, declared string) string {
	if declared != "" {
		return declared
	}
	return Categorize(name)
}

// mergeInto folds a repeated ingredient into its existing line. Matching
// units with numeric quantities are summed; mismatched units fall back to a
// joined quantity string so nothing is silently dropped.
func mergeInto(existing *Item, ing model.Ingredient) {
	if existing.Unit != ing.Unit {
		existing.Quantity = joinQuantity(existing.Quantity, existing.Unit, ing.Quantity, ing.Unit)
		existing.Unit = ""
		return
	}
	existing.Quantity = mergeQuantity(existing.Quantity, ing.Quantity)
}

// mergeQuantity combines two same-unit quantity strings, summing when both
// are numeric.
func mergeQuantity(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return strconv.FormatFloat(fa+fb, 'f', -1, 64)
	}
	return a + " + " + b
}

func joinQuantity(qa, ua, qb, ub string) string {
	return strings.TrimSpace(qa+" "+ua) + " + " + strings.TrimSpace(qb+" "+ub)
}
