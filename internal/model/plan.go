package model

import "time"

// MealType is the slot a meal occupies within a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// Valid reports whether t is one of the known meal types.
func (t MealType) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

// Preferences holds per-plan display preferences.
type Preferences struct {
	StartDay  int    `json:"start_day"`
	WeekStart string `json:"week_start,omitempty"`
}

// Meal is one entry in a plan. A day/meal-type slot may hold any number of
// meals; identity is the ID alone.
type Meal struct {
	ID       string   `json:"id"`
	DayIndex int      `json:"day_index"`
	MealType MealType `json:"meal_type"`
	RecipeID string   `json:"recipe_id"`
	Servings int      `json:"servings"`
}

// Plan is the shared weekly meal plan. One active plan per client session.
type Plan struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Preferences Preferences `json:"preferences"`
	Meals       []Meal      `json:"meals"`
}

// Role is the local user's relationship to the active plan.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleNone   Role = ""
)
