package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, quantity_on_hand, expiry_date, unit_cost, unit, low_stock_threshold, created_at`

func scanIngredient(row interface{ Scan(dest ...any) error }) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.QuantityOnHand,
		&i.ExpiryDate,
		&i.UnitCost,
		&i.Unit,
		&i.LowStockThreshold,
		&i.CreatedAt,
	)
	return i, err
}

type CreateIngredientParams struct {
	Name              string
	QuantityOnHand    pgtype.Numeric
	ExpiryDate        pgtype.Date
	UnitCost          pgtype.Numeric
	Unit              IngredientUnit
	LowStockThreshold pgtype.Numeric
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO ingredients (name, quantity_on_hand, expiry_date, unit_cost, unit, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+ingredientColumns,
		arg.Name, arg.QuantityOnHand, arg.ExpiryDate, arg.UnitCost, arg.Unit, arg.LowStockThreshold,
	)
	return scanIngredient(row)
}

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	row := q.db.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id)
	return scanIngredient(row)
}

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, `SELECT `+ingredientColumns+` FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateIngredientParams struct {
	ID                uuid.UUID
	Name              string
	QuantityOnHand    pgtype.Numeric
	ExpiryDate        pgtype.Date
	UnitCost          pgtype.Numeric
	Unit              IngredientUnit
	LowStockThreshold pgtype.Numeric
}

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE ingredients
		SET name = $2, quantity_on_hand = $3, expiry_date = $4, unit_cost = $5, unit = $6, low_stock_threshold = $7
		WHERE id = $1
		RETURNING `+ingredientColumns,
		arg.ID, arg.Name, arg.QuantityOnHand, arg.ExpiryDate, arg.UnitCost, arg.Unit, arg.LowStockThreshold,
	)
	return scanIngredient(row)
}

func (q *Queries) DeleteIngredient(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	return err
}

type DeductIngredientStockParams struct {
	ID       uuid.UUID
	Quantity pgtype.Numeric
}

// DeductIngredientStock subtracts the given quantity, clamping at zero so the
// on-hand amount never goes negative.
func (q *Queries) DeductIngredientStock(ctx context.Context, arg DeductIngredientStockParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE ingredients
		SET quantity_on_hand = GREATEST(quantity_on_hand - $2, 0)
		WHERE id = $1
		RETURNING `+ingredientColumns,
		arg.ID, arg.Quantity,
	)
	return scanIngredient(row)
}

type AddIngredientStockParams struct {
	ID       uuid.UUID
	Quantity pgtype.Numeric
}

func (q *Queries) AddIngredientStock(ctx context.Context, arg AddIngredientStockParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE ingredients
		SET quantity_on_hand = quantity_on_hand + $2
		WHERE id = $1
		RETURNING `+ingredientColumns,
		arg.ID, arg.Quantity,
	)
	return scanIngredient(row)
}
