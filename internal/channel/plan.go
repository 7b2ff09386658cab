package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hollowoak/larder/internal/model"
	"github.com/hollowoak/larder/internal/store"
)

// RecipeFetcher fetches a single recipe for backfill when a meal arrives
// referencing a recipe not yet known locally.
type RecipeFetcher interface {
	FetchRecipe(ctx context.Context, recipeID string) (*model.Recipe, error)
}

// PlanChannels is the realtime surface of one active plan: three logical
// topics (plan rows, shopping rows, shopping broadcasts) on one connection,
// merged into the store through the idempotent remote appliers.
type PlanChannels struct {
	conn    *Conn
	planID  string
	userID  string
	store   *store.Store
	recipes RecipeFetcher
	logger  *slog.Logger

	// subscription id → table, filled in at join time.
	tables map[int64]string

	topics []string
}

// OpenPlanChannels joins the three topics for planID and returns once all
// three joins are acknowledged; at that point realtime is fully live.
func OpenPlanChannels(ctx context.Context, conn *Conn, planID, userID string, st *store.Store, recipes RecipeFetcher, logger *slog.Logger) (*PlanChannels, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &PlanChannels{
		conn:    conn,
		planID:  planID,
		userID:  userID,
		store:   st,
		recipes: recipes,
		logger:  logger,
		tables:  make(map[int64]string),
	}

	planSubs := []Subscription{
		{Event: "*", Schema: "public", Table: "plans", Filter: "id=eq." + planID},
		{Event: "*", Schema: "public", Table: "meals", Filter: "plan_id=eq." + planID},
		{Event: "*", Schema: "public", Table: "recipes", Filter: "plan_id=eq." + planID},
	}
	shoppingSubs := []Subscription{
		{Event: "*", Schema: "public", Table: "custom_items", Filter: "plan_id=eq." + planID},
	}

	joins := []struct {
		topic string
		subs  []Subscription
	}{
		{"plan:" + planID, planSubs},
		{"shopping:" + planID, shoppingSubs},
		{"shopping:" + planID + ":broadcast", nil},
	}
	for _, j := range joins {
		ids, err := conn.Join(ctx, j.topic, j.subs, p)
		if err != nil {
			p.Close(ctx)
			return nil, err
		}
		for i, id := range ids {
			p.tables[id] = j.subs[i].Table
		}
		p.topics = append(p.topics, j.topic)
	}
	return p, nil
}

// Close leaves every joined topic. Handlers are detached before the leave
// frames go out, so a new PlanChannels for the same plan cannot see
// double-delivery from a closing predecessor. Re-entrant.
func (p *PlanChannels) Close(ctx context.Context) {
	for _, topic := range p.topics {
		if err := p.conn.Leave(ctx, topic); err != nil {
			p.logger.Warn("leave topic", "topic", topic, "error", err)
		}
	}
	p.topics = nil
}

// row is the superset of fields the watched tables deliver. Only the fields
// relevant to each table are populated.
type row struct {
	ID          string             `json:"id"`
	PlanID      string             `json:"plan_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Preferences model.Preferences  `json:"preferences"`
	DayIndex    int                `json:"day_index"`
	MealType    model.MealType     `json:"meal_type"`
	RecipeID    string             `json:"recipe_id"`
	Servings    int                `json:"servings"`
	Name        string             `json:"name"`
	Ingredients []model.Ingredient `json:"ingredients"`
	Ingredient  string             `json:"ingredient"`
	Quantity    string             `json:"quantity"`
	Unit        string             `json:"unit"`
	Category    string             `json:"category"`
	ModifiedBy  string             `json:"modified_by"`
}

// OnRow merges one row change. Echoes of the local user's own writes are
// rejected by the embedded writer identity; everything else goes through the
// idempotent store appliers.
func (p *PlanChannels) OnRow(ev RowEvent) {
	rec, ok := p.decode(ev)
	if !ok {
		return
	}
	if rec.ModifiedBy == p.userID && p.userID != "" {
		return
	}

	table := ""
	for _, id := range ev.SubscriptionIDs {
		if t, ok := p.tables[id]; ok {
			table = t
			break
		}
	}

	switch table {
	case "plans":
		p.applyPlan(ev.Type, rec)
	case "meals":
		p.applyMeal(ev.Type, rec)
	case "recipes":
		p.applyRecipe(ev.Type, rec)
	case "custom_items":
		p.applyCustomItem(ev.Type, rec)
	default:
		p.logger.Warn("row event for unknown subscription", "ids", ev.SubscriptionIDs)
	}
}

// decode picks the record snapshot appropriate to the event type. Deletes
// only carry the old record.
func (p *PlanChannels) decode(ev RowEvent) (row, bool) {
	raw := ev.Record
	if ev.Type == RowDelete {
		raw = ev.OldRecord
	}
	if len(raw) == 0 {
		p.logger.Warn("row event without record", "type", ev.Type)
		return row{}, false
	}
	var rec row
	if err := json.Unmarshal(raw, &rec); err != nil {
		p.logger.Warn("skipping malformed row record", "type", ev.Type, "error", err)
		return row{}, false
	}
	if rec.ID == "" {
		p.logger.Warn("row event record has no id", "type", ev.Type)
		return row{}, false
	}
	return rec, true
}

func (p *PlanChannels) applyPlan(typ string, rec row) {
	switch typ {
	case RowInsert, RowUpdate:
		p.store.ApplyRemotePlanUpdate(model.Plan{
			ID:          rec.ID,
			CreatedAt:   rec.CreatedAt,
			Preferences: rec.Preferences,
		})
	case RowDelete:
		p.store.ApplyRemotePlanDelete(rec.ID)
	}
}

func (p *PlanChannels) applyMeal(typ string, rec row) {
	meal := model.Meal{
		ID:       rec.ID,
		DayIndex: rec.DayIndex,
		MealType: rec.MealType,
		RecipeID: rec.RecipeID,
		Servings: rec.Servings,
	}
	switch typ {
	case RowInsert:
		p.store.ApplyRemoteMealInsert(meal)
		p.backfillRecipe(meal.RecipeID)
	case RowUpdate:
		p.store.ApplyRemoteMealUpdate(meal)
		p.backfillRecipe(meal.RecipeID)
	case RowDelete:
		p.store.ApplyRemoteMealDelete(rec.ID)
	}
}

func (p *PlanChannels) applyRecipe(typ string, rec row) {
	switch typ {
	case RowInsert, RowUpdate:
		p.store.ApplyRemoteRecipeInsert(model.Recipe{
			ID:          rec.ID,
			Name:        rec.Name,
			Ingredients: rec.Ingredients,
			Servings:    rec.Servings,
		})
	case RowDelete:
		p.store.ApplyRemoteRecipeDelete(rec.ID)
	}
}

func (p *PlanChannels) applyCustomItem(typ string, rec row) {
	switch typ {
	case RowInsert:
		p.store.ApplyRemoteCustomItemInsert(model.CustomItem{
			ID:         rec.ID,
			Ingredient: rec.Ingredient,
			Quantity:   rec.Quantity,
			Unit:       rec.Unit,
			Category:   rec.Category,
		})
	case RowDelete:
		p.store.ApplyRemoteCustomItemDelete(rec.ID)
	}
}

// backfillRecipe fetches a referenced recipe the store does not know yet and
// merges it in. The fetch runs off the read goroutine so a slow endpoint
// cannot stall event delivery.
func (p *PlanChannels) backfillRecipe(recipeID string) {
	if recipeID == "" || p.recipes == nil {
		return
	}
	for _, r := range p.store.Snapshot().Recipes {
		if r.ID == recipeID {
			return
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		recipe, err := p.recipes.FetchRecipe(ctx, recipeID)
		if err != nil {
			p.logger.Warn("recipe backfill failed", "recipe_id", recipeID, "error", err)
			return
		}
		p.store.ApplyRemoteRecipeInsert(*recipe)
	}()
}

// Broadcast payloads for checked-item events.
type checkedPayload struct {
	ItemID    string `json:"item_id"`
	CheckedBy string `json:"checked_by,omitempty"`
	Sender    string `json:"sender,omitempty"`
}

// OnBroadcast merges a named shopping broadcast. Handlers are idempotent:
// unchecking an already-unchecked item is a no-op.
func (p *PlanChannels) OnBroadcast(b Broadcast) {
	var payload checkedPayload
	if len(b.Payload) > 0 {
		if err := json.Unmarshal(b.Payload, &payload); err != nil {
			p.logger.Warn("skipping malformed broadcast", "event", b.Event, "error", err)
			return
		}
	}
	if payload.Sender == p.userID && p.userID != "" {
		return
	}

	switch b.Event {
	case "item_checked":
		if payload.ItemID == "" {
			p.logger.Warn("item_checked broadcast without item id")
			return
		}
		p.store.ApplyRemoteCheck(payload.ItemID, payload.CheckedBy)
	case "item_unchecked":
		if payload.ItemID == "" {
			p.logger.Warn("item_unchecked broadcast without item id")
			return
		}
		p.store.ApplyRemoteUncheck(payload.ItemID)
	case "checked_cleared":
		p.store.ApplyRemoteClearChecked()
	default:
		p.logger.Debug("ignoring broadcast", "event", b.Event)
	}
}
