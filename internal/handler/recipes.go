package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/salgadospro/api/internal/database"
	"github.com/salgadospro/api/internal/pricing"
)

// RecipeStore defines the database methods needed by recipe handlers.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, arg database.CreateRecipeParams) (database.Recipe, error)
	ListRecipes(ctx context.Context) ([]database.Recipe, error)
	UpdateRecipe(ctx context.Context, arg database.UpdateRecipeParams) (database.Recipe, error)
	DeleteRecipe(ctx context.Context, id uuid.UUID) error
}

// RecipeHandler handles the pricing calculator endpoints: ad-hoc previews
// and saved recipes.
type RecipeHandler struct {
	store RecipeStore
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(store RecipeStore) *RecipeHandler {
	return &RecipeHandler{store: store}
}

// RegisterRoutes registers recipe endpoints on the given Chi router.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/preview", h.Preview)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type recipeInput struct {
	Name           string `json:"name"`
	IngredientCost string `json:"ingredient_cost"`
	YieldUnits     int32  `json:"yield_units"`
	MarginPercent  string `json:"margin_percent"`
}

type pricingResponse struct {
	UnitCost       string `json:"unit_cost"`
	SuggestedPrice string `json:"suggested_price"`
	ProfitPerUnit  string `json:"profit_per_unit"`
	Warning        string `json:"warning,omitempty"`
}

type recipeResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	IngredientCost string    `json:"ingredient_cost"`
	YieldUnits     int32     `json:"yield_units"`
	MarginPercent  string    `json:"margin_percent"`
	SuggestedPrice string    `json:"suggested_price"`
	ProfitPerUnit  string    `json:"profit_per_unit"`
	UpdatedAt      time.Time `json:"updated_at"`
	Warning        string    `json:"warning,omitempty"`
}

// parsedRecipe is a recipe input after validation.
type parsedRecipe struct {
	cost    decimal.Decimal
	margin  decimal.Decimal
	result  pricing.Result
	warning string
}

func parseRecipeInput(req recipeInput, requireName bool) (parsedRecipe, error) {
	var p parsedRecipe

	if requireName && req.Name == "" {
		return p, errors.New("name is required")
	}
	if req.IngredientCost == "" {
		return p, errors.New("ingredient_cost is required")
	}
	cost, err := decimal.NewFromString(req.IngredientCost)
	if err != nil || cost.IsNegative() {
		return p, errors.New("ingredient_cost must be >= 0")
	}
	margin := decimal.Zero
	if req.MarginPercent != "" {
		margin, err = decimal.NewFromString(req.MarginPercent)
		if err != nil {
			return p, errors.New("invalid margin_percent")
		}
	}

	warning, err := pricing.ValidateMargin(margin)
	if err != nil {
		return p, err
	}

	p.cost = cost
	p.margin = margin
	p.warning = warning
	p.result = pricing.Calculate(cost, int64(req.YieldUnits), margin)
	return p, nil
}

// --- Handlers ---

// Preview handles POST /recipes/preview: runs the calculator without
// persisting anything.
func (h *RecipeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req recipeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := parseRecipeInput(req, false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, pricingResponse{
		UnitCost:       p.result.UnitCost.StringFixed(2),
		SuggestedPrice: p.result.SuggestedPrice.StringFixed(2),
		ProfitPerUnit:  p.result.ProfitPerUnit.StringFixed(2),
		Warning:        p.warning,
	})
}

// Create handles POST /recipes.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recipeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := parseRecipeInput(req, true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	recipe, err := h.store.CreateRecipe(r.Context(), database.CreateRecipeParams{
		Name:           req.Name,
		IngredientCost: decimalToNumeric(p.cost),
		YieldUnits:     req.YieldUnits,
		MarginPercent:  decimalToNumeric(p.margin),
		SuggestedPrice: decimalToNumeric(p.result.SuggestedPrice),
		ProfitPerUnit:  decimalToNumeric(p.result.ProfitPerUnit),
	})
	if err != nil {
		log.Printf("ERROR: create recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toRecipeResponse(recipe, p.warning))
}

// List handles GET /recipes.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.store.ListRecipes(r.Context())
	if err != nil {
		log.Printf("ERROR: list recipes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]recipeResponse, len(recipes))
	for i, rec := range recipes {
		resp[i] = toRecipeResponse(rec, "")
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /recipes/{id}: recalculates price fields from the new
// inputs before saving.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe ID"})
		return
	}

	var req recipeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := parseRecipeInput(req, true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	recipe, err := h.store.UpdateRecipe(r.Context(), database.UpdateRecipeParams{
		ID:             id,
		Name:           req.Name,
		IngredientCost: decimalToNumeric(p.cost),
		YieldUnits:     req.YieldUnits,
		MarginPercent:  decimalToNumeric(p.margin),
		SuggestedPrice: decimalToNumeric(p.result.SuggestedPrice),
		ProfitPerUnit:  decimalToNumeric(p.result.ProfitPerUnit),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe not found"})
			return
		}
		log.Printf("ERROR: update recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(recipe, p.warning))
}

// Delete handles DELETE /recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe ID"})
		return
	}

	if err := h.store.DeleteRecipe(r.Context(), id); err != nil {
		log.Printf("ERROR: delete recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toRecipeResponse(rec database.Recipe, warning string) recipeResponse {
	return recipeResponse{
		ID:             rec.ID,
		Name:           rec.Name,
		IngredientCost: numericString(rec.IngredientCost),
		YieldUnits:     rec.YieldUnits,
		MarginPercent:  numericString(rec.MarginPercent),
		SuggestedPrice: numericString(rec.SuggestedPrice),
		ProfitPerUnit:  numericString(rec.ProfitPerUnit),
		UpdatedAt:      rec.UpdatedAt,
		Warning:        warning,
	}
}
