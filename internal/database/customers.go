package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, name, whatsapp, notes, created_at`

func scanCustomer(row interface{ Scan(dest ...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Whatsapp, &c.Notes, &c.CreatedAt)
	return c, err
}

type CreateCustomerParams struct {
	Name     string
	Whatsapp pgtype.Text
	Notes    pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO customers (name, whatsapp, notes)
		VALUES ($1, $2, $3)
		RETURNING `+customerColumns,
		arg.Name, arg.Whatsapp, arg.Notes,
	)
	return scanCustomer(row)
}

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

type UpdateCustomerParams struct {
	ID       uuid.UUID
	Name     string
	Whatsapp pgtype.Text
	Notes    pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, whatsapp = $3, notes = $4
		WHERE id = $1
		RETURNING `+customerColumns,
		arg.ID, arg.Name, arg.Whatsapp, arg.Notes,
	)
	return scanCustomer(row)
}

func (q *Queries) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}
