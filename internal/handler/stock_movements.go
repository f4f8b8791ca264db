package handler

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/salgadospro/api/internal/database"
)

// StockMovementStore defines the database methods needed by movement handlers.
type StockMovementStore interface {
	ListStockMovements(ctx context.Context, arg database.ListStockMovementsParams) ([]database.StockMovement, error)
	ListStockMovementItems(ctx context.Context, movementID uuid.UUID) ([]database.StockMovementItem, error)
}

// StockMovementHandler exposes the stock audit trail.
type StockMovementHandler struct {
	store StockMovementStore
}

// NewStockMovementHandler creates a new StockMovementHandler.
func NewStockMovementHandler(store StockMovementStore) *StockMovementHandler {
	return &StockMovementHandler{store: store}
}

// RegisterRoutes registers movement endpoints on the given Chi router.
func (h *StockMovementHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type stockMovementResponse struct {
	ID        uuid.UUID              `json:"id"`
	Kind      string                 `json:"kind"`
	Reference *string                `json:"reference"`
	CreatedAt time.Time              `json:"created_at"`
	Items     []movementItemResponse `json:"items"`
}

// List handles GET /stock-movements.
func (h *StockMovementHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	if offset > math.MaxInt32 {
		offset = math.MaxInt32
	}

	movements, err := h.store.ListStockMovements(r.Context(), database.ListStockMovementsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list stock movements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]stockMovementResponse, len(movements))
	for i, m := range movements {
		items, err := h.store.ListStockMovementItems(r.Context(), m.ID)
		if err != nil {
			log.Printf("ERROR: list stock movement items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		itemResps := make([]movementItemResponse, len(items))
		for j, item := range items {
			itemResps[j] = movementItemResponse{
				IngredientID: item.IngredientID,
				Quantity:     quantityString(item.Quantity),
			}
		}
		resp[i] = stockMovementResponse{
			ID:        m.ID,
			Kind:      string(m.Kind),
			Reference: textPtr(m.Reference),
			CreatedAt: m.CreatedAt,
			Items:     itemResps,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
