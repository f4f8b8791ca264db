package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/salgadospro/api/internal/costing"
	"github.com/salgadospro/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
type ReportStore interface {
	ListOrdersInPeriod(ctx context.Context, arg database.ListOrdersInPeriodParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	ListCompositionEntries(ctx context.Context) ([]database.ProductCompositionEntry, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.DailySalesRow, error)
	GetSetting(ctx context.Context, key string) (database.Setting, error)
}

// ReportHandler handles the CMV and sales report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cmv", h.CMV)
	r.Get("/summary", h.Summary)
	r.Get("/daily-sales", h.DailySales)
}

// --- Response types ---

type cmvResponse struct {
	Revenue    string `json:"revenue"`
	CMV        string `json:"cmv"`
	CMVPercent string `json:"cmv_percent"`
	Profit     string `json:"profit"`
}

type summaryResponse struct {
	TotalOrders     int    `json:"total_orders"`
	PaidOrders      int    `json:"paid_orders"`
	PendingOrders   int    `json:"pending_orders"`
	CancelledOrders int    `json:"cancelled_orders"`
	Revenue         string `json:"revenue"`
	CMV             string `json:"cmv"`
	Profit          string `json:"profit"`
}

type dailySalesResponse struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
}

// --- Handlers ---

// CMV handles GET /reports/cmv.
func (h *ReportHandler) CMV(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	orders, err := h.store.ListOrdersInPeriod(r.Context(), period)
	if err != nil {
		log.Printf("ERROR: list orders for cmv: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	cmv, revenue, err := h.computeCMV(r.Context(), orders)
	if err != nil {
		log.Printf("ERROR: compute cmv: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	percent := "0.00"
	if revenue.IsPositive() {
		percent = cmv.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2).StringFixed(2)
	}

	writeJSON(w, http.StatusOK, cmvResponse{
		Revenue:    revenue.StringFixed(2),
		CMV:        cmv.StringFixed(2),
		CMVPercent: percent,
		Profit:     revenue.Sub(cmv).StringFixed(2),
	})
}

// Summary handles GET /reports/summary.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	orders, err := h.store.ListOrdersInPeriod(r.Context(), period)
	if err != nil {
		log.Printf("ERROR: list orders for summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := summaryResponse{TotalOrders: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case database.OrderStatusPAID, database.OrderStatusDELIVERED:
			resp.PaidOrders++
		case database.OrderStatusDRAFT, database.OrderStatusPENDING:
			resp.PendingOrders++
		case database.OrderStatusCANCELLED:
			resp.CancelledOrders++
		}
	}

	cmv, revenue, err := h.computeCMV(r.Context(), orders)
	if err != nil {
		log.Printf("ERROR: compute cmv for summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp.Revenue = revenue.StringFixed(2)
	resp.CMV = cmv.StringFixed(2)
	resp.Profit = revenue.Sub(cmv).StringFixed(2)
	writeJSON(w, http.StatusOK, resp)
}

// DailySales handles GET /reports/daily-sales.
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
	})
	if err != nil {
		log.Printf("ERROR: daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:         row.SaleDate.Time.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// computeCMV builds the costing inputs from the database and runs the CMV
// engine over the given orders. It also returns the revenue of the paid ones.
func (h *ReportHandler) computeCMV(ctx context.Context, orders []database.Order) (cmv, revenue decimal.Decimal, err error) {
	ingredientRows, err := h.store.ListIngredients(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	ingredients := make(map[uuid.UUID]costing.Ingredient, len(ingredientRows))
	for _, ing := range ingredientRows {
		ingredients[ing.ID] = costing.Ingredient{
			ID:       ing.ID,
			UnitCost: numericToDecimal(ing.UnitCost),
		}
	}

	compositionRows, err := h.store.ListCompositionEntries(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	products := make(map[uuid.UUID]costing.Product)
	for _, entry := range compositionRows {
		p := products[entry.ProductID]
		p.ID = entry.ProductID
		p.Composition = append(p.Composition, costing.CompositionEntry{
			IngredientID:    entry.IngredientID,
			QuantityPerUnit: numericToDecimal(entry.QuantityPerUnit),
		})
		products[entry.ProductID] = p
	}

	revenue = decimal.Zero
	costingOrders := make([]costing.Order, 0, len(orders))
	for _, o := range orders {
		co := costing.Order{
			ID:          o.ID,
			Status:      o.Status,
			TotalAmount: numericToDecimal(o.TotalAmount),
		}
		if o.Status == database.OrderStatusPAID || o.Status == database.OrderStatusDELIVERED {
			revenue = revenue.Add(co.TotalAmount)
			items, err := h.store.ListOrderItemsByOrder(ctx, o.ID)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
			for _, item := range items {
				co.Lines = append(co.Lines, costing.OrderLine{
					ProductID: item.ProductID,
					Quantity:  int64(item.Quantity),
				})
			}
		}
		costingOrders = append(costingOrders, co)
	}

	cmv = costing.CalculateCMV(costingOrders, products, ingredients, h.cmvPercent(ctx))
	return cmv, revenue, nil
}

// cmvPercent reads the configured estimation percentage, falling back to the
// default when the setting is missing or unparseable.
func (h *ReportHandler) cmvPercent(ctx context.Context) decimal.Decimal {
	fallback := decimal.NewFromInt(costing.DefaultCMVPercent)

	setting, err := h.store.GetSetting(ctx, database.SettingKeyCMVEstimatedPercent)
	if err != nil {
		return fallback
	}
	percent, err := decimal.NewFromString(setting.Value)
	if err != nil || percent.IsNegative() {
		return fallback
	}
	return percent
}

// parsePeriod reads optional start_date/end_date query params (YYYY-MM-DD,
// end inclusive). It writes the error response itself and reports ok=false.
func parsePeriod(w http.ResponseWriter, r *http.Request) (database.ListOrdersInPeriodParams, bool) {
	var period database.ListOrdersInPeriodParams

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return period, false
		}
		period.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return period, false
		}
		period.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}
	return period, true
}
