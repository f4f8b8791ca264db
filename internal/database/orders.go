package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_id, delivery_fee, service_fee, total_amount, status, created_at, paid_at, delivered_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.DeliveryFee,
		&o.ServiceFee,
		&o.TotalAmount,
		&o.Status,
		&o.CreatedAt,
		&o.PaidAt,
		&o.DeliveredAt,
	)
	return o, err
}

type CreateOrderParams struct {
	CustomerID  uuid.UUID
	DeliveryFee pgtype.Numeric
	ServiceFee  pgtype.Numeric
	TotalAmount pgtype.Numeric
	Status      OrderStatus
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (customer_id, delivery_fee, service_fee, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orderColumns,
		arg.CustomerID, arg.DeliveryFee, arg.ServiceFee, arg.TotalAmount, arg.Status,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_id, product_id, quantity, unit_price, subtotal`,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.Subtotal,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice, &i.Subtotal)
	return i, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row (FOR NO KEY UPDATE) to serialize
// concurrent payment and update attempts against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanOrder(row)
}

type ListOrdersParams struct {
	Status    string // empty matches all statuses
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		arg.Status, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type ListOrdersInPeriodParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

// ListOrdersInPeriod returns every order created in [start, end), unpaginated,
// for report aggregation.
func (q *Queries) ListOrdersInPeriod(ctx context.Context, arg ListOrdersInPeriodParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at`,
		arg.StartDate, arg.EndDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id = $1`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice, &i.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateOrderParams struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	DeliveryFee pgtype.Numeric
	ServiceFee  pgtype.Numeric
	TotalAmount pgtype.Numeric
	Status      OrderStatus
}

// UpdateOrder replaces the mutable order fields; created_at is untouched.
func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET customer_id = $2, delivery_fee = $3, service_fee = $4, total_amount = $5, status = $6
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.CustomerID, arg.DeliveryFee, arg.ServiceFee, arg.TotalAmount, arg.Status,
	)
	return scanOrder(row)
}

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

func (q *Queries) MarkOrderPaid(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'PAID', paid_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		id,
	)
	return scanOrder(row)
}

// MarkOrderDelivered transitions PAID -> DELIVERED; returns pgx.ErrNoRows when
// the order is missing or not in PAID (the status changed between read and write).
func (q *Queries) MarkOrderDelivered(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'DELIVERED', delivered_at = now()
		WHERE id = $1 AND status = 'PAID'
		RETURNING `+orderColumns,
		id,
	)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     OrderStatus
	PrevStatus OrderStatus
}

// UpdateOrderStatus is a compare-and-swap: the write only applies when the
// status still equals PrevStatus.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.PrevStatus,
	)
	return scanOrder(row)
}

// CancelOrder enforces the precondition atomically: only non-terminal orders
// can be cancelled.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'CANCELLED'
		WHERE id = $1 AND status NOT IN ('DELIVERED', 'CANCELLED')
		RETURNING `+orderColumns,
		id,
	)
	return scanOrder(row)
}

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}

type DailySalesRow struct {
	SaleDate     pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

type GetDailySalesParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

// GetDailySales buckets PAID/DELIVERED order revenue by creation day.
func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]DailySalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT created_at::date AS sale_date,
		       COUNT(*) AS order_count,
		       COALESCE(SUM(total_amount), 0) AS total_revenue
		FROM orders
		WHERE status IN ('PAID', 'DELIVERED')
		  AND ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		GROUP BY created_at::date
		ORDER BY sale_date`,
		arg.StartDate, arg.EndDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DailySalesRow
	for rows.Next() {
		var r DailySalesRow
		if err := rows.Scan(&r.SaleDate, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
