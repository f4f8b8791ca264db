package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/salgadospro/api/internal/database"
	"github.com/salgadospro/api/internal/handler"
)

type mockAlertStore struct {
	listIngredientsFn func(ctx context.Context) ([]database.Ingredient, error)
	deleteAllFn       func(ctx context.Context) error
	createFn          func(ctx context.Context, arg database.CreateAlertParams) (database.Alert, error)
	listFn            func(ctx context.Context) ([]database.Alert, error)
	markReadFn        func(ctx context.Context, id uuid.UUID) (database.Alert, error)

	created []database.CreateAlertParams
}

func (m *mockAlertStore) ListIngredients(ctx context.Context) ([]database.Ingredient, error) {
	if m.listIngredientsFn != nil {
		return m.listIngredientsFn(ctx)
	}
	return []database.Ingredient{}, nil
}

func (m *mockAlertStore) DeleteAllAlerts(ctx context.Context) error {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return nil
}

func (m *mockAlertStore) CreateAlert(ctx context.Context, arg database.CreateAlertParams) (database.Alert, error) {
	m.created = append(m.created, arg)
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Alert{
		ID:          uuid.New(),
		Kind:        arg.Kind,
		Title:       arg.Title,
		Description: arg.Description,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *mockAlertStore) ListAlerts(ctx context.Context) ([]database.Alert, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	alerts := make([]database.Alert, len(m.created))
	for i, arg := range m.created {
		alerts[i] = database.Alert{
			ID:          uuid.New(),
			Kind:        arg.Kind,
			Title:       arg.Title,
			Description: arg.Description,
			CreatedAt:   time.Now(),
		}
	}
	return alerts, nil
}

func (m *mockAlertStore) MarkAlertRead(ctx context.Context, id uuid.UUID) (database.Alert, error) {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, id)
	}
	return database.Alert{}, pgx.ErrNoRows
}

func setupAlertRouter(store *mockAlertStore) *chi.Mux {
	h := handler.NewAlertHandler(store)
	r := chi.NewRouter()
	r.Route("/alerts", h.RegisterRoutes)
	return r
}

func TestAlertList_LowStockSweep(t *testing.T) {
	low := testIngredient("Wheat flour", "3.000") // threshold is 5
	fine := testIngredient("Mozzarella", "20.000")

	store := &mockAlertStore{
		listIngredientsFn: func(ctx context.Context) ([]database.Ingredient, error) {
			return []database.Ingredient{low, fine}, nil
		},
	}

	router := setupAlertRouter(store)
	rr := doRequest(t, router, "GET", "/alerts", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("alerts created: got %d, want 1", len(store.created))
	}
	if store.created[0].Kind != database.AlertKindLowStock {
		t.Errorf("kind: got %v, want LOW_STOCK", store.created[0].Kind)
	}
	if store.created[0].Title != "Low stock: Wheat flour" {
		t.Errorf("title: got %q", store.created[0].Title)
	}
}

func TestAlertList_ZeroStockZeroThresholdAlerts(t *testing.T) {
	empty := testIngredient("Oil", "0.000")
	empty.LowStockThreshold = testNumeric("0")

	stocked := testIngredient("Salt", "1.000")
	stocked.LowStockThreshold = testNumeric("0")

	store := &mockAlertStore{
		listIngredientsFn: func(ctx context.Context) ([]database.Ingredient, error) {
			return []database.Ingredient{empty, stocked}, nil
		},
	}

	router := setupAlertRouter(store)
	rr := doRequest(t, router, "GET", "/alerts", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if len(store.created) != 1 {
		t.Fatalf("alerts created: got %d, want 1", len(store.created))
	}
	if store.created[0].Title != "Low stock: Oil" {
		t.Errorf("title: got %q, want Low stock: Oil", store.created[0].Title)
	}
}

func TestAlertList_ExpirySweep(t *testing.T) {
	soon := testIngredient("Shredded chicken", "10.000")
	soon.ExpiryDate = pgtype.Date{Time: time.Now().Add(24 * time.Hour), Valid: true}

	later := testIngredient("Mozzarella", "10.000")
	later.ExpiryDate = pgtype.Date{Time: time.Now().Add(30 * 24 * time.Hour), Valid: true}

	store := &mockAlertStore{
		listIngredientsFn: func(ctx context.Context) ([]database.Ingredient, error) {
			return []database.Ingredient{soon, later}, nil
		},
	}

	router := setupAlertRouter(store)
	rr := doRequest(t, router, "GET", "/alerts", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if len(store.created) != 1 {
		t.Fatalf("alerts created: got %d, want 1", len(store.created))
	}
	if store.created[0].Kind != database.AlertKindExpirySoon {
		t.Errorf("kind: got %v, want EXPIRY_SOON", store.created[0].Kind)
	}
}

func TestAlertList_SweepReplacesOldAlerts(t *testing.T) {
	deleted := false
	store := &mockAlertStore{
		deleteAllFn: func(ctx context.Context) error {
			deleted = true
			return nil
		},
	}

	router := setupAlertRouter(store)
	rr := doRequest(t, router, "GET", "/alerts", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !deleted {
		t.Error("DeleteAllAlerts was not called before listing")
	}
}

func TestAlertMarkRead(t *testing.T) {
	id := uuid.New()
	store := &mockAlertStore{
		markReadFn: func(ctx context.Context, gotID uuid.UUID) (database.Alert, error) {
			if gotID != id {
				t.Errorf("alert id: got %v, want %v", gotID, id)
			}
			return database.Alert{ID: gotID, Kind: database.AlertKindLowStock, Read: true, CreatedAt: time.Now()}, nil
		},
	}

	router := setupAlertRouter(store)
	rr := doRequest(t, router, "PATCH", "/alerts/"+id.String()+"/read", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["read"] != true {
		t.Errorf("read: got %v, want true", resp["read"])
	}
}

func TestAlertMarkRead_NotFound(t *testing.T) {
	router := setupAlertRouter(&mockAlertStore{})
	rr := doRequest(t, router, "PATCH", "/alerts/"+uuid.NewString()+"/read", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}
