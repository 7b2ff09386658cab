// Package remote is the HTTP client for the plan service's mutation and
// fetch endpoints. Mutations are idempotent upserts/deletes by id on the
// server side; the dispatcher relies on that to make at-least-once delivery
// safe. Every mutation payload carries the acting user's identity so other
// clients can filter echoes of their own writes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hollowoak/larder/internal/model"
)

const requestTimeout = 10 * time.Second

// Client talks to the plan service.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	token  string
	userID string
	email  string
}

// NewClient creates a client for the service at baseURL (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// SetAuth installs the bearer token and acting identity used on every
// subsequent request.
func (c *Client) SetAuth(token, userID, email string) {
	c.mu.Lock()
	c.token = token
	c.userID = userID
	c.email = email
	c.mu.Unlock()
}

// ClearAuth drops the bearer token and identity.
func (c *Client) ClearAuth() {
	c.SetAuth("", "", "")
}

func (c *Client) auth() (token, userID, email string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.userID, c.email
}

// do sends a JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, _, _ := c.auth()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// --- Mutation endpoints ---

type planUpsert struct {
	model.Plan
	ModifiedBy string `json:"modified_by"`
}

// SyncPlan upserts the whole plan.
func (c *Client) SyncPlan(ctx context.Context, plan model.Plan) error {
	_, userID, _ := c.auth()
	return c.do(ctx, http.MethodPut, "/api/plans/"+plan.ID, planUpsert{Plan: plan, ModifiedBy: userID}, nil)
}

type mealUpsert struct {
	model.Meal
	ModifiedBy string `json:"modified_by"`
}

// AddMeal inserts one meal into a plan.
func (c *Client) AddMeal(ctx context.Context, planID string, meal model.Meal) error {
	_, userID, _ := c.auth()
	return c.do(ctx, http.MethodPost, "/api/plans/"+planID+"/meals", mealUpsert{Meal: meal, ModifiedBy: userID}, nil)
}

// RemoveMeal deletes one meal by id.
func (c *Client) RemoveMeal(ctx context.Context, mealID string) error {
	return c.do(ctx, http.MethodDelete, "/api/meals/"+mealID, nil, nil)
}

// SwapMeal changes one meal's recipe.
func (c *Client) SwapMeal(ctx context.Context, mealID, recipeID string) error {
	_, userID, _ := c.auth()
	body := struct {
		RecipeID   string `json:"recipe_id"`
		ModifiedBy string `json:"modified_by"`
	}{recipeID, userID}
	return c.do(ctx, http.MethodPatch, "/api/meals/"+mealID, body, nil)
}

// ToggleCheckedItem checks or unchecks one shopping-list item.
func (c *Client) ToggleCheckedItem(ctx context.Context, planID, itemID string, checked bool, userEmail string) error {
	_, userID, _ := c.auth()
	body := struct {
		Checked    bool   `json:"checked"`
		UserEmail  string `json:"user_email,omitempty"`
		ModifiedBy string `json:"modified_by"`
	}{checked, userEmail, userID}
	return c.do(ctx, http.MethodPut, "/api/plans/"+planID+"/checked/"+itemID, body, nil)
}

// ClearCheckedItems unchecks everything on a plan's shopping list.
func (c *Client) ClearCheckedItems(ctx context.Context, planID string) error {
	return c.do(ctx, http.MethodDelete, "/api/plans/"+planID+"/checked", nil, nil)
}

type customItemUpsert struct {
	model.CustomItem
	ModifiedBy string `json:"modified_by"`
}

// AddCustomItem inserts one custom shopping-list item.
func (c *Client) AddCustomItem(ctx context.Context, planID string, item model.CustomItem) error {
	_, userID, _ := c.auth()
	return c.do(ctx, http.MethodPost, "/api/plans/"+planID+"/custom-items", customItemUpsert{CustomItem: item, ModifiedBy: userID}, nil)
}

// RemoveCustomItem deletes one custom item by id.
func (c *Client) RemoveCustomItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/api/custom-items/"+itemID, nil, nil)
}

type recipeUpsert struct {
	model.Recipe
	ModifiedBy string `json:"modified_by"`
}

// SaveRecipe upserts one user recipe.
func (c *Client) SaveRecipe(ctx context.Context, recipe model.Recipe) error {
	_, userID, _ := c.auth()
	return c.do(ctx, http.MethodPut, "/api/recipes/"+recipe.ID, recipeUpsert{Recipe: recipe, ModifiedBy: userID}, nil)
}

// DeleteRecipe deletes one user recipe by id.
func (c *Client) DeleteRecipe(ctx context.Context, recipeID string) error {
	return c.do(ctx, http.MethodDelete, "/api/recipes/"+recipeID, nil, nil)
}

// --- Fetch endpoints ---

// FetchPlan returns a plan with its meals.
func (c *Client) FetchPlan(ctx context.Context, planID string) (*model.Plan, error) {
	var plan model.Plan
	if err := c.do(ctx, http.MethodGet, "/api/plans/"+planID, nil, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FetchMeals returns the authoritative meal set for a plan.
func (c *Client) FetchMeals(ctx context.Context, planID string) ([]model.Meal, error) {
	var meals []model.Meal
	if err := c.do(ctx, http.MethodGet, "/api/plans/"+planID+"/meals", nil, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// FetchCustomItems returns the authoritative custom-item set for a plan.
func (c *Client) FetchCustomItems(ctx context.Context, planID string) ([]model.CustomItem, error) {
	var items []model.CustomItem
	if err := c.do(ctx, http.MethodGet, "/api/plans/"+planID+"/custom-items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchRecipe returns a single recipe by id (the backfill path for meals
// whose recipe is not yet known locally).
func (c *Client) FetchRecipe(ctx context.Context, recipeID string) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := c.do(ctx, http.MethodGet, "/api/recipes/"+recipeID, nil, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// JoinPlan adds the current user to a plan's membership and returns the plan.
func (c *Client) JoinPlan(ctx context.Context, planID string) (*model.Plan, error) {
	_, userID, email := c.auth()
	body := struct {
		UserID string `json:"user_id"`
		Email  string `json:"email,omitempty"`
	}{userID, email}
	var plan model.Plan
	if err := c.do(ctx, http.MethodPost, "/api/plans/"+planID+"/members", body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LeavePlan removes the current user from a plan's membership.
func (c *Client) LeavePlan(ctx context.Context, planID string) error {
	_, userID, _ := c.auth()
	return c.do(ctx, http.MethodDelete, "/api/plans/"+planID+"/members/"+userID, nil, nil)
}
