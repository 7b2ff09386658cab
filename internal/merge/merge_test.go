package merge

import (
	"testing"

	"github.com/hollowoak/larder/internal/model"
)

func TestInsertMealIdempotent(t *testing.T) {
	meals := []model.Meal{{ID: "m1", DayIndex: 0, MealType: model.Dinner, RecipeID: "r1"}}

	m := model.Meal{ID: "m2", DayIndex: 1, MealType: model.Lunch, RecipeID: "r2"}
	once := InsertMeal(meals, m)
	twice := InsertMeal(once, m)

	if len(once) != 2 {
		t.Fatalf("expected 2 meals after insert, got %d", len(once))
	}
	if len(twice) != 2 {
		t.Fatalf("expected second insert to be a no-op, got %d meals", len(twice))
	}
}

func TestInsertMealDoesNotMutateInput(t *testing.T) {
	meals := []model.Meal{{ID: "m1"}}
	_ = InsertMeal(meals, model.Meal{ID: "m2"})
	if len(meals) != 1 {
		t.Fatalf("input slice mutated, len %d", len(meals))
	}
}

func TestUpdateMealUnknownIDIsNoOp(t *testing.T) {
	meals := []model.Meal{{ID: "m1", RecipeID: "r1"}}
	out := UpdateMeal(meals, model.Meal{ID: "nope", RecipeID: "r9"})
	if len(out) != 1 || out[0].RecipeID != "r1" {
		t.Fatalf("expected unchanged collection, got %+v", out)
	}
	if &out[0] != &meals[0] {
		t.Error("expected same backing slice for unknown id")
	}
}

func TestUpdateMealReplaces(t *testing.T) {
	meals := []model.Meal{{ID: "m1", RecipeID: "r1", Servings: 2}}
	out := UpdateMeal(meals, model.Meal{ID: "m1", RecipeID: "r2", Servings: 4})
	if out[0].RecipeID != "r2" || out[0].Servings != 4 {
		t.Fatalf("update not applied: %+v", out[0])
	}
	if meals[0].RecipeID != "r1" {
		t.Error("input slice mutated")
	}
}

func TestDeleteMealAbsentIDIsNoOp(t *testing.T) {
	meals := []model.Meal{{ID: "m1"}, {ID: "m2"}}
	out := DeleteMeal(meals, "nope")
	if len(out) != 2 {
		t.Fatalf("expected unchanged length 2, got %d", len(out))
	}
	if &out[0] != &meals[0] {
		t.Error("expected same backing slice for absent id")
	}
}

func TestDeleteMealRemoves(t *testing.T) {
	meals := []model.Meal{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}
	out := DeleteMeal(meals, "m2")
	if len(out) != 2 {
		t.Fatalf("expected 2 meals, got %d", len(out))
	}
	if out[0].ID != "m1" || out[1].ID != "m3" {
		t.Errorf("wrong survivors: %+v", out)
	}
	once := DeleteMeal(out, "m2")
	if len(once) != 2 {
		t.Errorf("second delete changed length to %d", len(once))
	}
}

func TestInsertCustomItemIdempotent(t *testing.T) {
	item := model.CustomItem{ID: "custom-1", Ingredient: "olive oil"}
	once := InsertCustomItem(nil, item)
	twice := InsertCustomItem(once, item)
	if len(once) != 1 || len(twice) != 1 {
		t.Fatalf("expected 1 item after both inserts, got %d then %d", len(once), len(twice))
	}
}

func TestRemoveCustomItemAbsentIDIsNoOp(t *testing.T) {
	items := []model.CustomItem{{ID: "custom-1"}}
	out := RemoveCustomItem(items, "custom-2")
	if len(out) != 1 {
		t.Fatalf("expected unchanged length, got %d", len(out))
	}
}

func TestInsertRecipeDedup(t *testing.T) {
	r := model.Recipe{ID: "r1", Name: "Carbonara"}
	once := InsertRecipe(nil, r)
	twice := InsertRecipe(once, model.Recipe{ID: "r1", Name: "Different name, same id"})
	if len(twice) != 1 {
		t.Fatalf("expected dedup by id, got %d recipes", len(twice))
	}
	if twice[0].Name != "Carbonara" {
		t.Errorf("existing recipe overwritten: %q", twice[0].Name)
	}
}

func TestRemoveRecipe(t *testing.T) {
	recipes := []model.Recipe{{ID: "r1"}, {ID: "r2"}}
	out := RemoveRecipe(recipes, "r1")
	if len(out) != 1 || out[0].ID != "r2" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if got := RemoveRecipe(out, "r1"); len(got) != 1 {
		t.Errorf("second remove changed length to %d", len(got))
	}
}
