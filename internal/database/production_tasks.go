package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const taskColumns = `id, title, description, category, due_date, done, created_at`

func scanTask(row interface{ Scan(dest ...any) error }) (ProductionTask, error) {
	var t ProductionTask
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.DueDate, &t.Done, &t.CreatedAt)
	return t, err
}

type CreateProductionTaskParams struct {
	Title       string
	Description pgtype.Text
	Category    TaskCategory
	DueDate     pgtype.Date
}

func (q *Queries) CreateProductionTask(ctx context.Context, arg CreateProductionTaskParams) (ProductionTask, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO production_tasks (title, description, category, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING `+taskColumns,
		arg.Title, arg.Description, arg.Category, arg.DueDate,
	)
	return scanTask(row)
}

func (q *Queries) ListProductionTasks(ctx context.Context) ([]ProductionTask, error) {
	rows, err := q.db.Query(ctx, `SELECT `+taskColumns+` FROM production_tasks ORDER BY due_date NULLS LAST, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductionTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type SetProductionTaskDoneParams struct {
	ID   uuid.UUID
	Done bool
}

func (q *Queries) SetProductionTaskDone(ctx context.Context, arg SetProductionTaskDoneParams) (ProductionTask, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE production_tasks
		SET done = $2
		WHERE id = $1
		RETURNING `+taskColumns,
		arg.ID, arg.Done,
	)
	return scanTask(row)
}

func (q *Queries) DeleteProductionTask(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM production_tasks WHERE id = $1`, id)
	return err
}
