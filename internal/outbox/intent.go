// Package outbox holds the durable log of pending local mutations. Each
// mutation is recorded as an Intent carrying just enough payload to replay
// the corresponding remote call later.
package outbox

import (
	"time"

	"github.com/hollowoak/larder/internal/model"
)

// Kind identifies an intent variant on the wire and in the persisted
// projection.
type Kind string

const (
	KindSyncPlan          Kind = "sync_plan"
	KindAddMeal           Kind = "add_meal"
	KindRemoveMeal        Kind = "remove_meal"
	KindSwapMeal          Kind = "swap_meal"
	KindToggleCheckedItem Kind = "toggle_checked_item"
	KindClearCheckedItems Kind = "clear_checked_items"
	KindAddCustomItem     Kind = "add_custom_item"
	KindRemoveCustomItem  Kind = "remove_custom_item"
	KindSaveRecipe        Kind = "save_recipe"
	KindDeleteRecipe      Kind = "delete_recipe"
)

// Intent is the closed set of replayable local mutations. The unexported
// marker keeps the set sealed so the dispatcher's switch stays exhaustive.
type Intent interface {
	Kind() Kind
	At() time.Time
	stamp(t time.Time) Intent
	sealed()
}

// Stamp is embedded by every intent and carries the push timestamp used for
// age-based eviction.
type Stamp struct {
	Timestamp time.Time `json:"timestamp"`
}

func (s Stamp) At() time.Time { return s.Timestamp }
func (Stamp) sealed()         {}

// SyncPlan replays a full upsert of the plan.
type SyncPlan struct {
	Stamp
	Plan model.Plan `json:"plan"`
}

func (i SyncPlan) Kind() Kind { return KindSyncPlan }
func (i SyncPlan) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// AddMeal replays adding one meal to a plan.
type AddMeal struct {
	Stamp
	PlanID string     `json:"plan_id"`
	Meal   model.Meal `json:"meal"`
}

func (i AddMeal) Kind() Kind { return KindAddMeal }
func (i AddMeal) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// RemoveMeal replays deleting one meal by id.
type RemoveMeal struct {
	Stamp
	MealID string `json:"meal_id"`
}

func (i RemoveMeal) Kind() Kind { return KindRemoveMeal }
func (i RemoveMeal) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// SwapMeal replays changing one meal's recipe.
type SwapMeal struct {
	Stamp
	MealID   string `json:"meal_id"`
	RecipeID string `json:"recipe_id"`
}

func (i SwapMeal) Kind() Kind { return KindSwapMeal }
func (i SwapMeal) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// ToggleCheckedItem replays checking or unchecking a shopping-list item.
type ToggleCheckedItem struct {
	Stamp
	PlanID    string `json:"plan_id"`
	ItemID    string `json:"item_id"`
	Checked   bool   `json:"checked"`
	UserEmail string `json:"user_email,omitempty"`
}

func (i ToggleCheckedItem) Kind() Kind { return KindToggleCheckedItem }
func (i ToggleCheckedItem) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// ClearCheckedItems replays clearing every checked item on the plan.
type ClearCheckedItems struct {
	Stamp
	PlanID string `json:"plan_id"`
}

func (i ClearCheckedItems) Kind() Kind { return KindClearCheckedItems }
func (i ClearCheckedItems) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// AddCustomItem replays inserting a custom shopping-list item.
type AddCustomItem struct {
	Stamp
	PlanID string           `json:"plan_id"`
	Item   model.CustomItem `json:"item"`
}

func (i AddCustomItem) Kind() Kind { return KindAddCustomItem }
func (i AddCustomItem) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// RemoveCustomItem replays deleting a custom shopping-list item by id.
type RemoveCustomItem struct {
	Stamp
	ItemID string `json:"item_id"`
}

func (i RemoveCustomItem) Kind() Kind { return KindRemoveCustomItem }
func (i RemoveCustomItem) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// SaveRecipe replays upserting a user recipe.
type SaveRecipe struct {
	Stamp
	Recipe model.Recipe `json:"recipe"`
}

func (i SaveRecipe) Kind() Kind { return KindSaveRecipe }
func (i SaveRecipe) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}

// DeleteRecipe replays deleting a user recipe by id.
type DeleteRecipe struct {
	Stamp
	RecipeID string `json:"recipe_id"`
}

func (i DeleteRecipe) Kind() Kind { return KindDeleteRecipe }
func (i DeleteRecipe) stamp(t time.Time) Intent {
	i.Timestamp = t
	return i
}
