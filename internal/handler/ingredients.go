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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/salgadospro/api/internal/database"
)

// IngredientStore defines the database methods needed by ingredient handlers.
type IngredientStore interface {
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
	DeleteIngredient(ctx context.Context, id uuid.UUID) error
	AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	CreateStockMovementItem(ctx context.Context, arg database.CreateStockMovementItemParams) (database.StockMovementItem, error)
}

// IngredientHandler handles ingredient endpoints.
type IngredientHandler struct {
	store IngredientStore
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(store IngredientStore) *IngredientHandler {
	return &IngredientHandler{store: store}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/restock", h.Restock)
}

// --- Request / Response types ---

type ingredientRequest struct {
	Name              string `json:"name"`
	QuantityOnHand    string `json:"quantity_on_hand"`
	ExpiryDate        string `json:"expiry_date"` // YYYY-MM-DD
	UnitCost          string `json:"unit_cost"`
	Unit              string `json:"unit"`
	LowStockThreshold string `json:"low_stock_threshold"`
}

type restockRequest struct {
	Quantity string `json:"quantity"`
}

type ingredientResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	QuantityOnHand    string    `json:"quantity_on_hand"`
	ExpiryDate        *string   `json:"expiry_date"`
	UnitCost          string    `json:"unit_cost"`
	Unit              string    `json:"unit"`
	LowStockThreshold string    `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /ingredients.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, err := ingredientParams(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ingredient, err := h.store.CreateIngredient(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toIngredientResponse(ingredient))
}

// List handles GET /ingredients.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context())
	if err != nil {
		log.Printf("ERROR: list ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = toIngredientResponse(ing)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /ingredients/{id}.
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	ingredient, err := h.store.GetIngredient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: get ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

// Update handles PUT /ingredients/{id}.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, err := ingredientParams(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ingredient, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:                id,
		Name:              params.Name,
		QuantityOnHand:    params.QuantityOnHand,
		ExpiryDate:        params.ExpiryDate,
		UnitCost:          params.UnitCost,
		Unit:              params.Unit,
		LowStockThreshold: params.LowStockThreshold,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: update ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

// Delete handles DELETE /ingredients/{id}. Compositions referencing the
// deleted ingredient are left in place and tolerated downstream.
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	if _, err := h.store.GetIngredient(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: get ingredient for delete: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.store.DeleteIngredient(r.Context(), id); err != nil {
		log.Printf("ERROR: delete ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restock handles POST /ingredients/{id}/restock: adds stock and records an
// INBOUND movement.
func (h *IngredientHandler) Restock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || !qty.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}

	var qtyNumeric pgtype.Numeric
	_ = qtyNumeric.Scan(qty.StringFixed(3))

	ingredient, err := h.store.AddIngredientStock(r.Context(), database.AddIngredientStockParams{
		ID:       id,
		Quantity: qtyNumeric,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: restock ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Movement references are either an order id or "adjustment"; manual
	// restocks are adjustments.
	movement, err := h.store.CreateStockMovement(r.Context(), database.CreateStockMovementParams{
		Kind:      database.MovementKindINBOUND,
		Reference: pgtype.Text{String: "adjustment", Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: create inbound movement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := h.store.CreateStockMovementItem(r.Context(), database.CreateStockMovementItemParams{
		MovementID:   movement.ID,
		IngredientID: id,
		Quantity:     qtyNumeric,
	}); err != nil {
		log.Printf("ERROR: create inbound movement item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ingredient))
}

// --- Helpers ---

var errInvalidUnit = errors.New("unit must be one of kg, g, L, mL, unit")

func isValidUnit(u database.IngredientUnit) bool {
	switch u {
	case database.IngredientUnitKg, database.IngredientUnitG,
		database.IngredientUnitL, database.IngredientUnitMl,
		database.IngredientUnitUnit:
		return true
	}
	return false
}

func ingredientParams(req ingredientRequest) (database.CreateIngredientParams, error) {
	var params database.CreateIngredientParams

	if req.Name == "" {
		return params, errors.New("name is required")
	}
	unit := database.IngredientUnit(req.Unit)
	if !isValidUnit(unit) {
		return params, errInvalidUnit
	}

	qty := decimal.Zero
	if req.QuantityOnHand != "" {
		var err error
		qty, err = decimal.NewFromString(req.QuantityOnHand)
		if err != nil || qty.IsNegative() {
			return params, errors.New("quantity_on_hand must be >= 0")
		}
	}

	unitCost := decimal.Zero
	if req.UnitCost != "" {
		var err error
		unitCost, err = decimal.NewFromString(req.UnitCost)
		if err != nil || unitCost.IsNegative() {
			return params, errors.New("unit_cost must be >= 0")
		}
	}

	threshold := decimal.Zero
	if req.LowStockThreshold != "" {
		var err error
		threshold, err = decimal.NewFromString(req.LowStockThreshold)
		if err != nil || threshold.IsNegative() {
			return params, errors.New("low_stock_threshold must be >= 0")
		}
	}

	expiry := pgtype.Date{}
	if req.ExpiryDate != "" {
		t, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return params, errors.New("invalid expiry_date format, use YYYY-MM-DD")
		}
		expiry = pgtype.Date{Time: t, Valid: true}
	}

	var qtyN, costN, thresholdN pgtype.Numeric
	_ = qtyN.Scan(qty.StringFixed(3))
	_ = costN.Scan(unitCost.StringFixed(2))
	_ = thresholdN.Scan(threshold.StringFixed(3))

	params.Name = req.Name
	params.QuantityOnHand = qtyN
	params.ExpiryDate = expiry
	params.UnitCost = costN
	params.Unit = unit
	params.LowStockThreshold = thresholdN
	return params, nil
}

func toIngredientResponse(i database.Ingredient) ingredientResponse {
	resp := ingredientResponse{
		ID:                i.ID,
		Name:              i.Name,
		QuantityOnHand:    quantityString(i.QuantityOnHand),
		UnitCost:          numericString(i.UnitCost),
		Unit:              string(i.Unit),
		LowStockThreshold: quantityString(i.LowStockThreshold),
		CreatedAt:         i.CreatedAt,
	}
	if i.ExpiryDate.Valid {
		s := i.ExpiryDate.Time.Format("2006-01-02")
		resp.ExpiryDate = &s
	}
	return resp
}
