package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salgadospro/api/internal/database"
)

// expiryWindow is how far ahead an ingredient expiry date raises an alert.
const expiryWindow = 3 * 24 * time.Hour

// AlertStore defines the database methods needed by alert handlers.
type AlertStore interface {
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	DeleteAllAlerts(ctx context.Context) error
	CreateAlert(ctx context.Context, arg database.CreateAlertParams) (database.Alert, error)
	ListAlerts(ctx context.Context) ([]database.Alert, error)
	MarkAlertRead(ctx context.Context, id uuid.UUID) (database.Alert, error)
}

// AlertHandler handles stock alert endpoints. Alerts are derived data: every
// listing resweeps the ingredient table so the result reflects current stock.
type AlertHandler struct {
	store AlertStore
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(store AlertStore) *AlertHandler {
	return &AlertHandler{store: store}
}

// RegisterRoutes registers alert endpoints on the given Chi router.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/read", h.MarkRead)
}

type alertResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// List handles GET /alerts: regenerates alerts from current stock, then
// returns them.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.sweep(r.Context()); err != nil {
		log.Printf("ERROR: sweep alerts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	alerts, err := h.store.ListAlerts(r.Context())
	if err != nil {
		log.Printf("ERROR: list alerts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]alertResponse, len(alerts))
	for i, a := range alerts {
		resp[i] = toAlertResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkRead handles PATCH /alerts/{id}/read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert ID"})
		return
	}

	alert, err := h.store.MarkAlertRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "alert not found"})
			return
		}
		log.Printf("ERROR: mark alert read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

// sweep rebuilds the alert table from the ingredient list: LOW_STOCK when
// on-hand falls to the threshold (an ingredient run down to zero alerts even
// with a zero threshold), EXPIRY_SOON when the expiry date is inside the
// window (or already past).
func (h *AlertHandler) sweep(ctx context.Context) error {
	ingredients, err := h.store.ListIngredients(ctx)
	if err != nil {
		return err
	}

	if err := h.store.DeleteAllAlerts(ctx); err != nil {
		return err
	}

	deadline := time.Now().Add(expiryWindow)
	for _, ing := range ingredients {
		qty := numericToDecimal(ing.QuantityOnHand)
		threshold := numericToDecimal(ing.LowStockThreshold)
		if qty.LessThanOrEqual(threshold) {
			_, err := h.store.CreateAlert(ctx, database.CreateAlertParams{
				Kind:        database.AlertKindLowStock,
				Title:       fmt.Sprintf("Low stock: %s", ing.Name),
				Description: fmt.Sprintf("%s is down to %s %s (threshold %s)", ing.Name, qty, ing.Unit, threshold),
			})
			if err != nil {
				return err
			}
		}
		if ing.ExpiryDate.Valid && !ing.ExpiryDate.Time.After(deadline) {
			_, err := h.store.CreateAlert(ctx, database.CreateAlertParams{
				Kind:        database.AlertKindExpirySoon,
				Title:       fmt.Sprintf("Expiring soon: %s", ing.Name),
				Description: fmt.Sprintf("%s expires on %s", ing.Name, ing.ExpiryDate.Time.Format("2006-01-02")),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func toAlertResponse(a database.Alert) alertResponse {
	return alertResponse{
		ID:          a.ID,
		Kind:        string(a.Kind),
		Title:       a.Title,
		Description: a.Description,
		Read:        a.Read,
		CreatedAt:   a.CreatedAt,
	}
}
