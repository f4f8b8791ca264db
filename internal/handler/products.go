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

// ProductStore defines the database methods needed by product handlers.
type ProductStore interface {
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	CreateCompositionEntry(ctx context.Context, arg database.CreateCompositionEntryParams) (database.ProductCompositionEntry, error)
	DeleteProductComposition(ctx context.Context, productID uuid.UUID) error
	ListCompositionByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductCompositionEntry, error)
}

// ProductHandler handles product and composition endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/composition", h.GetComposition)
	r.Put("/{id}/composition", h.ReplaceComposition)
}

// --- Request / Response types ---

type productRequest struct {
	Name        string `json:"name"`
	Sku         string `json:"sku"`
	Description string `json:"description"`
	SalePrice   string `json:"sale_price"`
	Category    string `json:"category"`
	Active      *bool  `json:"active"`
}

type productResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Sku         *string   `json:"sku"`
	Description *string   `json:"description"`
	SalePrice   string    `json:"sale_price"`
	Category    *string   `json:"category"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type compositionEntryPayload struct {
	IngredientID    string `json:"ingredient_id"`
	QuantityPerUnit string `json:"quantity_per_unit"`
}

type replaceCompositionRequest struct {
	Entries []compositionEntryPayload `json:"entries"`
}

type compositionEntryResponse struct {
	IngredientID    uuid.UUID `json:"ingredient_id"`
	QuantityPerUnit string    `json:"quantity_per_unit"`
}

// --- Handlers ---

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, err := productParams(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	product, err := h.store.CreateProduct(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// List handles GET /products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Update handles PUT /products/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, err := productParams(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          id,
		Name:        params.Name,
		Sku:         params.Sku,
		Description: params.Description,
		SalePrice:   params.SalePrice,
		Category:    params.Category,
		Active:      params.Active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete handles DELETE /products/{id}. The composition rows go with it
// (ON DELETE CASCADE).
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for delete: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetComposition handles GET /products/{id}/composition.
func (h *ProductHandler) GetComposition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for composition: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	entries, err := h.store.ListCompositionByProduct(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list composition: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]compositionEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = compositionEntryResponse{
			IngredientID:    e.IngredientID,
			QuantityPerUnit: quantityString(e.QuantityPerUnit),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReplaceComposition handles PUT /products/{id}/composition: the entries
// replace the product's whole bill of materials. Every ingredient must exist
// at write time; later deletions are tolerated by the readers instead.
func (h *ProductHandler) ReplaceComposition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req replaceCompositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if _, err := h.store.GetProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for composition: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type parsedEntry struct {
		ingredientID uuid.UUID
		quantity     pgtype.Numeric
	}
	parsed := make([]parsedEntry, 0, len(req.Entries))
	seen := make(map[uuid.UUID]bool)
	for i, e := range req.Entries {
		ingredientID, err := uuid.Parse(e.IngredientID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
			return
		}
		if seen[ingredientID] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duplicate ingredient_id"})
			return
		}
		seen[ingredientID] = true

		qty, err := decimal.NewFromString(e.QuantityPerUnit)
		if err != nil || !qty.IsPositive() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity_per_unit must be > 0"})
			return
		}

		if _, err := h.store.GetIngredient(r.Context(), ingredientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
				return
			}
			log.Printf("ERROR: get ingredient for composition[%d]: %v", i, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		var n pgtype.Numeric
		_ = n.Scan(qty.StringFixed(3))
		parsed = append(parsed, parsedEntry{ingredientID: ingredientID, quantity: n})
	}

	if err := h.store.DeleteProductComposition(r.Context(), id); err != nil {
		log.Printf("ERROR: delete composition: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]compositionEntryResponse, 0, len(parsed))
	for _, e := range parsed {
		entry, err := h.store.CreateCompositionEntry(r.Context(), database.CreateCompositionEntryParams{
			ProductID:       id,
			IngredientID:    e.ingredientID,
			QuantityPerUnit: e.quantity,
		})
		if err != nil {
			log.Printf("ERROR: create composition entry: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp = append(resp, compositionEntryResponse{
			IngredientID:    entry.IngredientID,
			QuantityPerUnit: quantityString(entry.QuantityPerUnit),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func productParams(req productRequest) (database.CreateProductParams, error) {
	var params database.CreateProductParams

	if req.Name == "" {
		return params, errors.New("name is required")
	}

	price := decimal.Zero
	if req.SalePrice != "" {
		var err error
		price, err = decimal.NewFromString(req.SalePrice)
		if err != nil || price.IsNegative() {
			return params, errors.New("sale_price must be >= 0")
		}
	}

	params.Name = req.Name
	params.SalePrice = decimalToNumeric(price)
	params.Active = true
	if req.Active != nil {
		params.Active = *req.Active
	}
	if req.Sku != "" {
		params.Sku = pgtype.Text{String: req.Sku, Valid: true}
	}
	if req.Description != "" {
		params.Description = pgtype.Text{String: req.Description, Valid: true}
	}
	if req.Category != "" {
		params.Category = pgtype.Text{String: req.Category, Valid: true}
	}
	return params, nil
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Sku:         textPtr(p.Sku),
		Description: textPtr(p.Description),
		SalePrice:   numericString(p.SalePrice),
		Category:    textPtr(p.Category),
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
	}
}
