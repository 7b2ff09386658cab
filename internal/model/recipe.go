package model

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// Recipe is the minimal recipe shape the sync engine needs: enough to swap
// meals between recipes and to backfill recipes referenced by meals that
// arrive over the channel before the recipe itself is known locally.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
	Servings    int          `json:"servings,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
}
