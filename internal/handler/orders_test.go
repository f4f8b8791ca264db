package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/salgadospro/api/internal/database"
	"github.com/salgadospro/api/internal/handler"
	"github.com/salgadospro/api/internal/service"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn       func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	updateFn       func(ctx context.Context, req service.UpdateOrderRequest) (*service.OrderResult, error)
	payFn          func(ctx context.Context, orderID uuid.UUID) (*service.PaymentResult, error)
	changeStatusFn func(ctx context.Context, orderID uuid.UUID, next database.OrderStatus) (database.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error) {
	return m.createFn(ctx, req)
}
func (m *mockOrderService) UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*service.OrderResult, error) {
	return m.updateFn(ctx, req)
}
func (m *mockOrderService) ProcessPayment(ctx context.Context, orderID uuid.UUID) (*service.PaymentResult, error) {
	return m.payFn(ctx, orderID)
}
func (m *mockOrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, next database.OrderStatus) (database.Order, error) {
	return m.changeStatusFn(ctx, orderID, next)
}

// --- Mock OrderStore ---

type mockOrderStore struct {
	getOrderFn              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersFn            func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	deleteOrderFn           func(ctx context.Context, id uuid.UUID) error
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, arg)
	}
	return []database.Order{}, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsByOrderFn != nil {
		return m.listOrderItemsByOrderFn(ctx, orderID)
	}
	return []database.OrderItem{}, nil
}

func (m *mockOrderStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if m.deleteOrderFn != nil {
		return m.deleteOrderFn(ctx, id)
	}
	return nil
}

// --- Test helpers ---

func setupOrderRouter(svc *mockOrderService, store *mockOrderStore) *chi.Mux {
	h := handler.NewOrderHandler(svc, store)
	r := chi.NewRouter()
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	decodeInto(t, rr, &resp)
	return resp
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func testNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func testDate(val string) pgtype.Date {
	t, _ := time.Parse("2006-01-02", val)
	return pgtype.Date{Time: t, Valid: true}
}

func testOrder(status database.OrderStatus) database.Order {
	return database.Order{
		ID:          uuid.New(),
		CustomerID:  uuid.New(),
		DeliveryFee: testNumeric("0.00"),
		ServiceFee:  testNumeric("0.00"),
		TotalAmount: testNumeric("50.00"),
		Status:      status,
		CreatedAt:   time.Now(),
	}
}

// --- Tests ---

func TestOrderCreate_HappyPath(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error) {
			if req.CustomerID != customerID.String() {
				t.Errorf("customer_id: got %v, want %v", req.CustomerID, customerID)
			}
			if len(req.Items) != 1 {
				t.Fatalf("items count: got %d, want 1", len(req.Items))
			}
			if req.Items[0].UnitPrice != "10.00" {
				t.Errorf("unit_price: got %v, want 10.00", req.Items[0].UnitPrice)
			}
			return &service.OrderResult{Order: testOrder(database.OrderStatusPENDING)}, nil
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customer_id": customerID.String(),
		"items": []map[string]interface{}{
			{"product_id": productID.String(), "quantity": 5, "unit_price": "10.00"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["total_amount"] != "50.00" {
		t.Errorf("total_amount: got %v, want 50.00", resp["total_amount"])
	}
	if resp["status"] != "PENDING" {
		t.Errorf("status: got %v, want PENDING", resp["status"])
	}
}

func TestOrderCreate_ValidationErrorIs400(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error) {
			return nil, service.ErrEmptyItems
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customer_id": uuid.NewString(),
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestOrderCreate_InvalidBody(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderStore{})

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderStore{})

	rr := doRequest(t, router, "GET", "/orders/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestOrderGet_WithItems(t *testing.T) {
	order := testOrder(database.OrderStatusPENDING)
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: uuid.New(),
				Quantity:  5,
				UnitPrice: testNumeric("10.00"),
				Subtotal:  testNumeric("50.00"),
			}}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("items: got %v, want 1 entry", resp["items"])
	}
}

func TestOrderList_StatusFilterPassedThrough(t *testing.T) {
	var gotParams database.ListOrdersParams
	store := &mockOrderStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			gotParams = arg
			return []database.Order{testOrder(database.OrderStatusPAID)}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store)
	rr := doRequest(t, router, "GET", "/orders?status=PAID&limit=5", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if gotParams.Status != "PAID" {
		t.Errorf("status filter: got %q, want PAID", gotParams.Status)
	}
	if gotParams.Limit != 5 {
		t.Errorf("limit: got %d, want 5", gotParams.Limit)
	}
}

func TestOrderList_HugeOffsetClamped(t *testing.T) {
	var gotParams database.ListOrdersParams
	store := &mockOrderStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			gotParams = arg
			return []database.Order{}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store)
	rr := doRequest(t, router, "GET", "/orders?offset=4294967296", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if gotParams.Offset != math.MaxInt32 {
		t.Errorf("offset: got %d, want %d", gotParams.Offset, math.MaxInt32)
	}
	if gotParams.Offset < 0 {
		t.Errorf("offset wrapped negative: %d", gotParams.Offset)
	}
}

func TestOrderPay_HappyPath(t *testing.T) {
	orderID := uuid.New()
	ingredientID := uuid.New()

	svc := &mockOrderService{
		payFn: func(ctx context.Context, id uuid.UUID) (*service.PaymentResult, error) {
			if id != orderID {
				t.Errorf("order id: got %v, want %v", id, orderID)
			}
			movement := database.StockMovement{
				ID:        uuid.New(),
				Kind:      database.MovementKindDEDUCTION,
				Reference: pgtype.Text{String: orderID.String(), Valid: true},
			}
			return &service.PaymentResult{
				Order:    testOrder(database.OrderStatusPAID),
				Movement: &movement,
				MovementItems: []database.StockMovementItem{{
					MovementID:   movement.ID,
					IngredientID: ingredientID,
					Quantity:     testNumeric("10"),
				}},
			}, nil
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "POST", "/orders/"+orderID.String()+"/pay", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["already_paid"] != false {
		t.Errorf("already_paid: got %v, want false", resp["already_paid"])
	}
	deductions, ok := resp["deductions"].([]interface{})
	if !ok || len(deductions) != 1 {
		t.Fatalf("deductions: got %v, want 1 entry", resp["deductions"])
	}
	first := deductions[0].(map[string]interface{})
	if first["quantity"] != "10" {
		t.Errorf("deduction quantity: got %v, want 10", first["quantity"])
	}
}

func TestOrderPay_AlreadyPaid(t *testing.T) {
	svc := &mockOrderService{
		payFn: func(ctx context.Context, id uuid.UUID) (*service.PaymentResult, error) {
			return &service.PaymentResult{Order: testOrder(database.OrderStatusPAID), AlreadyPaid: true}, nil
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/pay", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["already_paid"] != true {
		t.Errorf("already_paid: got %v, want true", resp["already_paid"])
	}
}

func TestOrderPay_CancelledIs409(t *testing.T) {
	svc := &mockOrderService{
		payFn: func(ctx context.Context, id uuid.UUID) (*service.PaymentResult, error) {
			return nil, service.ErrOrderCancelled
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/pay", nil)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rr.Code)
	}
}

func TestOrderPay_NotFoundIs404(t *testing.T) {
	svc := &mockOrderService{
		payFn: func(ctx context.Context, id uuid.UUID) (*service.PaymentResult, error) {
			return nil, service.ErrOrderNotFound
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/pay", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestOrderUpdateStatus_PaidViaPatchIs409(t *testing.T) {
	svc := &mockOrderService{
		changeStatusFn: func(ctx context.Context, orderID uuid.UUID, next database.OrderStatus) (database.Order, error) {
			return database.Order{}, service.ErrStatusViaPayment
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "PATCH", "/orders/"+uuid.NewString()+"/status", map[string]string{
		"status": "PAID",
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rr.Code)
	}
}

func TestOrderUpdateStatus_HappyPath(t *testing.T) {
	svc := &mockOrderService{
		changeStatusFn: func(ctx context.Context, orderID uuid.UUID, next database.OrderStatus) (database.Order, error) {
			if next != database.OrderStatusCANCELLED {
				t.Errorf("next status: got %v, want CANCELLED", next)
			}
			return testOrder(database.OrderStatusCANCELLED), nil
		},
	}

	router := setupOrderRouter(svc, &mockOrderStore{})
	rr := doRequest(t, router, "PATCH", "/orders/"+uuid.NewString()+"/status", map[string]string{
		"status": "CANCELLED",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["status"] != "CANCELLED" {
		t.Errorf("status: got %v, want CANCELLED", resp["status"])
	}
}

func TestOrderDelete(t *testing.T) {
	order := testOrder(database.OrderStatusPENDING)
	deleted := false
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
		deleteOrderFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, store)
	rr := doRequest(t, router, "DELETE", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rr.Code)
	}
	if !deleted {
		t.Error("DeleteOrder was not called")
	}
}

func TestOrderDelete_NotFound(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderStore{})

	rr := doRequest(t, router, "DELETE", "/orders/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}
