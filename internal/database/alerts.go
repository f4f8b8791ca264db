package database

import (
	"context"

	"github.com/google/uuid"
)

type CreateAlertParams struct {
	Kind        AlertKind
	Title       string
	Description string
}

func (q *Queries) CreateAlert(ctx context.Context, arg CreateAlertParams) (Alert, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO alerts (kind, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, kind, title, description, read, created_at`,
		arg.Kind, arg.Title, arg.Description,
	)
	var a Alert
	err := row.Scan(&a.ID, &a.Kind, &a.Title, &a.Description, &a.Read, &a.CreatedAt)
	return a, err
}

func (q *Queries) ListAlerts(ctx context.Context) ([]Alert, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, kind, title, description, read, created_at
		FROM alerts
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Kind, &a.Title, &a.Description, &a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteAllAlerts(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `DELETE FROM alerts`)
	return err
}

func (q *Queries) MarkAlertRead(ctx context.Context, id uuid.UUID) (Alert, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE alerts
		SET read = TRUE
		WHERE id = $1
		RETURNING id, kind, title, description, read, created_at`,
		id,
	)
	var a Alert
	err := row.Scan(&a.ID, &a.Kind, &a.Title, &a.Description, &a.Read, &a.CreatedAt)
	return a, err
}
