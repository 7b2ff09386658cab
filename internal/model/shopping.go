package model

// CustomItemIDPrefix distinguishes user-added shopping items from items
// derived from plan recipes.
const CustomItemIDPrefix = "custom-"

// CustomItem is a shopping-list entry added by hand rather than derived from
// the plan. Custom items are only ever inserted or removed, never edited.
type CustomItem struct {
	ID         string `json:"id"`
	Ingredient string `json:"ingredient"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit"`
	Category   string `json:"category"`
}

// CheckedItems maps a shopping-list item id to the identity of whoever
// checked it. The empty string means checked anonymously; presence of the key
// is what means "checked".
type CheckedItems map[string]string

// Clone returns an independent copy of the map. A nil receiver clones to an
// empty, non-nil map.
func (c CheckedItems) Clone() CheckedItems {
	out := make(CheckedItems, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
