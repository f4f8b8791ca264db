package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const recipeColumns = `id, name, ingredient_cost, yield_units, margin_percent, suggested_price, profit_per_unit, updated_at`

func scanRecipe(row interface{ Scan(dest ...any) error }) (Recipe, error) {
	var r Recipe
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.IngredientCost,
		&r.YieldUnits,
		&r.MarginPercent,
		&r.SuggestedPrice,
		&r.ProfitPerUnit,
		&r.UpdatedAt,
	)
	return r, err
}

type CreateRecipeParams struct {
	Name           string
	IngredientCost pgtype.Numeric
	YieldUnits     int32
	MarginPercent  pgtype.Numeric
	SuggestedPrice pgtype.Numeric
	ProfitPerUnit  pgtype.Numeric
}

func (q *Queries) CreateRecipe(ctx context.Context, arg CreateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO recipes (name, ingredient_cost, yield_units, margin_percent, suggested_price, profit_per_unit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+recipeColumns,
		arg.Name, arg.IngredientCost, arg.YieldUnits, arg.MarginPercent, arg.SuggestedPrice, arg.ProfitPerUnit,
	)
	return scanRecipe(row)
}

func (q *Queries) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type UpdateRecipeParams struct {
	ID             uuid.UUID
	Name           string
	IngredientCost pgtype.Numeric
	YieldUnits     int32
	MarginPercent  pgtype.Numeric
	SuggestedPrice pgtype.Numeric
	ProfitPerUnit  pgtype.Numeric
}

func (q *Queries) UpdateRecipe(ctx context.Context, arg UpdateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE recipes
		SET name = $2, ingredient_cost = $3, yield_units = $4, margin_percent = $5,
		    suggested_price = $6, profit_per_unit = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+recipeColumns,
		arg.ID, arg.Name, arg.IngredientCost, arg.YieldUnits, arg.MarginPercent, arg.SuggestedPrice, arg.ProfitPerUnit,
	)
	return scanRecipe(row)
}

func (q *Queries) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	return err
}
