package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/salgadospro/api/internal/database"
)

// Errors returned by the order service.
var (
	ErrCustomerRequired  = errors.New("customer_id is required")
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidUnitPrice  = errors.New("invalid unit_price")
	ErrInvalidFee        = errors.New("fees must be >= 0")
	ErrInvalidProductID  = errors.New("invalid product_id")
	ErrInvalidCustomerID = errors.New("invalid customer_id")
	ErrProductNotFound   = errors.New("product not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrStatusViaPayment  = errors.New("PAID can only be reached through the payment endpoint")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotEditable  = errors.New("only DRAFT and PENDING orders can be edited")
	ErrOrderCancelled    = errors.New("order is cancelled")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderDelivered(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListCompositionByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductCompositionEntry, error)
	DeductIngredientStock(ctx context.Context, arg database.DeductIngredientStockParams) (database.Ingredient, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	CreateStockMovementItem(ctx context.Context, arg database.CreateStockMovementItemParams) (database.StockMovementItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// allowedTransitions maps a status to the statuses reachable from it via the
// generic status update. PAID is deliberately absent from every target list:
// it is only entered by ProcessPayment.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusDRAFT:   {database.OrderStatusPENDING, database.OrderStatusCANCELLED},
	database.OrderStatusPENDING: {database.OrderStatusCANCELLED},
	database.OrderStatusPAID:    {database.OrderStatusDELIVERED, database.OrderStatusCANCELLED},
}

// ValidateStatusTransition reports whether from -> to is a legal move.
func ValidateStatusTransition(from, to database.OrderStatus) error {
	if to == database.OrderStatusPAID {
		return ErrStatusViaPayment
	}
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerID  string
	Status      string // "" defaults to PENDING; DRAFT is the only other option
	DeliveryFee string
	ServiceFee  string
	Items       []OrderItemRequest
}

// OrderItemRequest is a single item in the order.
type OrderItemRequest struct {
	ProductID string
	Quantity  int32
	UnitPrice string
}

// UpdateOrderRequest replaces an order's mutable fields. Items always replace
// the existing set. Status is optional; when set it must be a legal transition.
type UpdateOrderRequest struct {
	ID          uuid.UUID
	CustomerID  string
	Status      string
	DeliveryFee string
	ServiceFee  string
	Items       []OrderItemRequest
}

// OrderResult is a full order with its items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// PaymentResult reports the outcome of ProcessPayment. When AlreadyPaid is
// true no stock was touched; Movement is nil when the order's products carry
// no resolvable composition.
type PaymentResult struct {
	Order         database.Order
	Movement      *database.StockMovement
	MovementItems []database.StockMovementItem
	AlreadyPaid   bool
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// preparedItem is an order item with its amounts already computed.
type preparedItem struct {
	productID uuid.UUID
	quantity  int32
	unitPrice decimal.Decimal
	subtotal  decimal.Decimal
}

// prepareItems validates items and computes per-line subtotals and their sum.
// The unit price is always taken from the request, never from the product's
// listed sale price: salgado orders are routinely priced per customer.
func prepareItems(items []OrderItemRequest) ([]preparedItem, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, ErrEmptyItems
	}

	subtotal := decimal.Zero
	prepared := make([]preparedItem, 0, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidUnitPrice)
		}

		lineSubtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		subtotal = subtotal.Add(lineSubtotal)
		prepared = append(prepared, preparedItem{
			productID: productID,
			quantity:  item.Quantity,
			unitPrice: unitPrice,
			subtotal:  lineSubtotal,
		})
	}
	return prepared, subtotal, nil
}

func parseFee(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(s)
	if err != nil || fee.IsNegative() {
		return decimal.Zero, ErrInvalidFee
	}
	return fee, nil
}

// CreateOrder validates, recomputes the total server-side, and creates an
// order with its items atomically. Client-sent totals are never trusted.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if req.CustomerID == "" {
		return nil, ErrCustomerRequired
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, ErrInvalidCustomerID
	}

	status := database.OrderStatusPENDING
	switch req.Status {
	case "", string(database.OrderStatusPENDING):
	case string(database.OrderStatusDRAFT):
		status = database.OrderStatusDRAFT
	default:
		return nil, ErrInvalidStatus
	}

	deliveryFee, err := parseFee(req.DeliveryFee)
	if err != nil {
		return nil, err
	}
	serviceFee, err := parseFee(req.ServiceFee)
	if err != nil {
		return nil, err
	}

	items, subtotal, err := prepareItems(req.Items)
	if err != nil {
		return nil, err
	}
	totalAmount := subtotal.Add(deliveryFee).Add(serviceFee)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	for i, item := range items {
		if _, err := store.GetProduct(ctx, item.productID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID:  customerID,
		DeliveryFee: decimalToNumeric(deliveryFee),
		ServiceFee:  decimalToNumeric(serviceFee),
		TotalAmount: decimalToNumeric(totalAmount),
		Status:      status,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	itemRows, err := insertItems(ctx, store, order.ID, items)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: itemRows}, nil
}

// UpdateOrder replaces an order's items and fields and recomputes the total,
// all in one transaction under a row lock. Orders that already left the
// editable statuses (DRAFT, PENDING) are rejected.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*OrderResult, error) {
	if req.CustomerID == "" {
		return nil, ErrCustomerRequired
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, ErrInvalidCustomerID
	}

	deliveryFee, err := parseFee(req.DeliveryFee)
	if err != nil {
		return nil, err
	}
	serviceFee, err := parseFee(req.ServiceFee)
	if err != nil {
		return nil, err
	}

	items, subtotal, err := prepareItems(req.Items)
	if err != nil {
		return nil, err
	}
	totalAmount := subtotal.Add(deliveryFee).Add(serviceFee)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, req.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if current.Status != database.OrderStatusDRAFT && current.Status != database.OrderStatusPENDING {
		return nil, ErrOrderNotEditable
	}

	status := current.Status
	if req.Status != "" && req.Status != string(current.Status) {
		next := database.OrderStatus(req.Status)
		if !isKnownStatus(next) {
			return nil, ErrInvalidStatus
		}
		if err := ValidateStatusTransition(current.Status, next); err != nil {
			return nil, err
		}
		status = next
	}

	if _, err := store.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	for i, item := range items {
		if _, err := store.GetProduct(ctx, item.productID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
	}

	if err := store.DeleteOrderItemsByOrder(ctx, req.ID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}
	itemRows, err := insertItems(ctx, store, req.ID, items)
	if err != nil {
		return nil, err
	}

	order, err := store.UpdateOrder(ctx, database.UpdateOrderParams{
		ID:          req.ID,
		CustomerID:  customerID,
		DeliveryFee: decimalToNumeric(deliveryFee),
		ServiceFee:  decimalToNumeric(serviceFee),
		TotalAmount: decimalToNumeric(totalAmount),
		Status:      status,
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: itemRows}, nil
}

// deduction is an aggregated per-ingredient quantity, in first-seen order.
type deduction struct {
	ingredientID uuid.UUID
	quantity     decimal.Decimal
}

// ProcessPayment marks an order paid and deducts ingredient stock according
// to the products' compositions, as a single transaction under a row lock.
// Paying an already-paid (or delivered) order is a no-op reported through
// PaymentResult.AlreadyPaid; stock is deducted at most once per order.
func (s *OrderService) ProcessPayment(ctx context.Context, orderID uuid.UUID) (*PaymentResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	switch order.Status {
	case database.OrderStatusPAID, database.OrderStatusDELIVERED:
		return &PaymentResult{Order: order, AlreadyPaid: true}, nil
	case database.OrderStatusCANCELLED:
		return nil, ErrOrderCancelled
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	// Aggregate required quantities per ingredient across every item's
	// composition, preserving first-seen order for stable movement rows.
	var deductions []deduction
	index := make(map[uuid.UUID]int)
	for _, item := range items {
		composition, err := store.ListCompositionByProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("list composition: %w", err)
		}
		qty := decimal.NewFromInt32(item.Quantity)
		for _, entry := range composition {
			needed := numericToDecimal(entry.QuantityPerUnit).Mul(qty)
			if i, ok := index[entry.IngredientID]; ok {
				deductions[i].quantity = deductions[i].quantity.Add(needed)
				continue
			}
			index[entry.IngredientID] = len(deductions)
			deductions = append(deductions, deduction{
				ingredientID: entry.IngredientID,
				quantity:     needed,
			})
		}
	}

	paid, err := store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	// Deduct stock. Compositions may reference ingredients that were deleted
	// since the product was configured; those rows are simply skipped.
	var applied []deduction
	for _, d := range deductions {
		_, err := store.DeductIngredientStock(ctx, database.DeductIngredientStockParams{
			ID:       d.ingredientID,
			Quantity: quantityToNumeric(d.quantity),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("deduct stock: %w", err)
		}
		applied = append(applied, d)
	}

	result := &PaymentResult{Order: paid}
	if len(applied) > 0 {
		movement, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
			Kind:      database.MovementKindDEDUCTION,
			Reference: pgtype.Text{String: orderID.String(), Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("create stock movement: %w", err)
		}
		for _, d := range applied {
			item, err := store.CreateStockMovementItem(ctx, database.CreateStockMovementItemParams{
				MovementID:   movement.ID,
				IngredientID: d.ingredientID,
				Quantity:     quantityToNumeric(d.quantity),
			})
			if err != nil {
				return nil, fmt.Errorf("create stock movement item: %w", err)
			}
			result.MovementItems = append(result.MovementItems, item)
		}
		result.Movement = &movement
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return result, nil
}

// ChangeStatus applies a generic status transition. PAID is rejected here;
// DELIVERED and CANCELLED use conditional writes so concurrent changes lose
// cleanly instead of overwriting each other.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, next database.OrderStatus) (database.Order, error) {
	if !isKnownStatus(next) {
		return database.Order{}, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if next == current.Status {
		return current, nil
	}
	if err := ValidateStatusTransition(current.Status, next); err != nil {
		return database.Order{}, err
	}

	var updated database.Order
	switch next {
	case database.OrderStatusDELIVERED:
		updated, err = store.MarkOrderDelivered(ctx, orderID)
	case database.OrderStatusCANCELLED:
		updated, err = store.CancelOrder(ctx, orderID)
	default:
		updated, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         orderID,
			Status:     next,
			PrevStatus: current.Status,
		})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
		}
		return database.Order{}, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	return updated, nil
}

// --- Helpers ---

func insertItems(ctx context.Context, store OrderStore, orderID uuid.UUID, items []preparedItem) ([]database.OrderItem, error) {
	rows := make([]database.OrderItem, 0, len(items))
	for _, item := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   orderID,
			ProductID: item.productID,
			Quantity:  item.quantity,
			UnitPrice: decimalToNumeric(item.unitPrice),
			Subtotal:  decimalToNumeric(item.subtotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isKnownStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusDRAFT, database.OrderStatusPENDING,
		database.OrderStatusPAID, database.OrderStatusDELIVERED,
		database.OrderStatusCANCELLED:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// quantityToNumeric keeps three decimals: stock is tracked in kg/L fractions.
func quantityToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(3))
	return n
}
