package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, sku, description, sale_price, category, active, created_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Sku,
		&p.Description,
		&p.SalePrice,
		&p.Category,
		&p.Active,
		&p.CreatedAt,
	)
	return p, err
}

type CreateProductParams struct {
	Name        string
	Sku         pgtype.Text
	Description pgtype.Text
	SalePrice   pgtype.Numeric
	Category    pgtype.Text
	Active      bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (name, sku, description, sale_price, category, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		arg.Name, arg.Sku, arg.Description, arg.SalePrice, arg.Category, arg.Active,
	)
	return scanProduct(row)
}

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Sku         pgtype.Text
	Description pgtype.Text
	SalePrice   pgtype.Numeric
	Category    pgtype.Text
	Active      bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET name = $2, sku = $3, description = $4, sale_price = $5, category = $6, active = $7
		WHERE id = $1
		RETURNING `+productColumns,
		arg.ID, arg.Name, arg.Sku, arg.Description, arg.SalePrice, arg.Category, arg.Active,
	)
	return scanProduct(row)
}

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

type CreateCompositionEntryParams struct {
	ProductID       uuid.UUID
	IngredientID    uuid.UUID
	QuantityPerUnit pgtype.Numeric
}

func (q *Queries) CreateCompositionEntry(ctx context.Context, arg CreateCompositionEntryParams) (ProductCompositionEntry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO product_composition (product_id, ingredient_id, quantity_per_unit)
		VALUES ($1, $2, $3)
		RETURNING product_id, ingredient_id, quantity_per_unit`,
		arg.ProductID, arg.IngredientID, arg.QuantityPerUnit,
	)
	var e ProductCompositionEntry
	err := row.Scan(&e.ProductID, &e.IngredientID, &e.QuantityPerUnit)
	return e, err
}

func (q *Queries) DeleteProductComposition(ctx context.Context, productID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM product_composition WHERE product_id = $1`, productID)
	return err
}

func (q *Queries) ListCompositionByProduct(ctx context.Context, productID uuid.UUID) ([]ProductCompositionEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT product_id, ingredient_id, quantity_per_unit
		FROM product_composition
		WHERE product_id = $1`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductCompositionEntry
	for rows.Next() {
		var e ProductCompositionEntry
		if err := rows.Scan(&e.ProductID, &e.IngredientID, &e.QuantityPerUnit); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ListCompositionEntries returns the full bill-of-materials table, used to
// build the product index for CMV costing.
func (q *Queries) ListCompositionEntries(ctx context.Context) ([]ProductCompositionEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT product_id, ingredient_id, quantity_per_unit
		FROM product_composition`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductCompositionEntry
	for rows.Next() {
		var e ProductCompositionEntry
		if err := rows.Scan(&e.ProductID, &e.IngredientID, &e.QuantityPerUnit); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
