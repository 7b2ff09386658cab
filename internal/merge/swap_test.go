package merge

import (
	"testing"

	"github.com/hollowoak/larder/internal/model"
)

func swapTestPlan() *model.Plan {
	return &model.Plan{
		ID: "p1",
		Meals: []model.Meal{
			{ID: "m1", DayIndex: 0, MealType: model.Dinner, RecipeID: "r1", Servings: 2},
			{ID: "m2", DayIndex: 1, MealType: model.Dinner, RecipeID: "r2", Servings: 2},
		},
	}
}

func recipeIDs(ids ...string) []model.Recipe {
	recipes := make([]model.Recipe, len(ids))
	for i, id := range ids {
		recipes[i] = model.Recipe{ID: id}
	}
	return recipes
}

func TestSwapUnknownMealReturnsSamePlan(t *testing.T) {
	plan := swapTestPlan()
	out := SwapMeal(plan, "nonexistent", "r3", recipeIDs("r1", "r2", "r3"))
	if out != plan {
		t.Fatal("expected the identical plan pointer for an unknown meal id")
	}
}

func TestSwapNilPlan(t *testing.T) {
	if out := SwapMeal(nil, "m1", "r2", nil); out != nil {
		t.Fatal("expected nil plan back")
	}
}

func TestSwapExplicitRecipe(t *testing.T) {
	plan := swapTestPlan()
	out := SwapMeal(plan, "m1", "r9", recipeIDs("r1", "r2"))
	if out == plan {
		t.Fatal("expected a new plan")
	}
	if out.Meals[0].RecipeID != "r9" {
		t.Errorf("recipe id = %q, want r9", out.Meals[0].RecipeID)
	}
	if out.Meals[0].ID != "m1" || out.Meals[0].DayIndex != 0 || out.Meals[0].MealType != model.Dinner || out.Meals[0].Servings != 2 {
		t.Errorf("swap changed more than the recipe: %+v", out.Meals[0])
	}
	if plan.Meals[0].RecipeID != "r1" {
		t.Error("input plan mutated")
	}
}

func TestSwapRandomNeverPicksCurrent(t *testing.T) {
	recipes := recipeIDs("r1", "r2", "r3", "r4")
	for i := 0; i < 20; i++ {
		plan := swapTestPlan()
		out := SwapMeal(plan, "m1", RandomRecipe, recipes)
		if out == plan {
			t.Fatal("expected a swap to happen")
		}
		if got := out.Meals[0].RecipeID; got == "r1" {
			t.Fatalf("iteration %d: random swap picked the current recipe", i)
		}
	}
}

func TestSwapRandomPrefersUnusedWithinMealType(t *testing.T) {
	// r2 is used by the other dinner meal; r3 is the only unused candidate.
	recipes := recipeIDs("r1", "r2", "r3")
	for i := 0; i < 20; i++ {
		out := SwapMeal(swapTestPlan(), "m1", RandomRecipe, recipes)
		if got := out.Meals[0].RecipeID; got != "r3" {
			t.Fatalf("iteration %d: picked %q, want the unused r3", i, got)
		}
	}
}

func TestSwapRandomFallsBackToUsed(t *testing.T) {
	// Every recipe is in use by a dinner meal, so any recipe except the
	// current one qualifies.
	recipes := recipeIDs("r1", "r2")
	out := SwapMeal(swapTestPlan(), "m1", RandomRecipe, recipes)
	if out == swapTestPlan() {
		t.Fatal("expected a swap")
	}
	if got := out.Meals[0].RecipeID; got != "r2" {
		t.Fatalf("picked %q, want the fallback r2", got)
	}
}

func TestSwapRandomNoCandidates(t *testing.T) {
	plan := swapTestPlan()
	out := SwapMeal(plan, "m1", RandomRecipe, recipeIDs("r1"))
	if out != plan {
		t.Fatal("expected a no-op when the only recipe is the current one")
	}
}
