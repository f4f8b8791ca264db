package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateStockMovementParams struct {
	Kind      MovementKind
	Reference pgtype.Text
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO stock_movements (kind, reference)
		VALUES ($1, $2)
		RETURNING id, kind, reference, created_at`,
		arg.Kind, arg.Reference,
	)
	var m StockMovement
	err := row.Scan(&m.ID, &m.Kind, &m.Reference, &m.CreatedAt)
	return m, err
}

type CreateStockMovementItemParams struct {
	MovementID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

func (q *Queries) CreateStockMovementItem(ctx context.Context, arg CreateStockMovementItemParams) (StockMovementItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO stock_movement_items (movement_id, ingredient_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING movement_id, ingredient_id, quantity`,
		arg.MovementID, arg.IngredientID, arg.Quantity,
	)
	var i StockMovementItem
	err := row.Scan(&i.MovementID, &i.IngredientID, &i.Quantity)
	return i, err
}

type ListStockMovementsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListStockMovements(ctx context.Context, arg ListStockMovementsParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, kind, reference, created_at
		FROM stock_movements
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.Kind, &m.Reference, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (q *Queries) ListStockMovementItems(ctx context.Context, movementID uuid.UUID) ([]StockMovementItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT movement_id, ingredient_id, quantity
		FROM stock_movement_items
		WHERE movement_id = $1`,
		movementID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockMovementItem
	for rows.Next() {
		var i StockMovementItem
		if err := rows.Scan(&i.MovementID, &i.IngredientID, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
