package notes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
)

const table = "notes"

const columns = "id, user_id, status, created_at, updated_at, exported_at, title, markdown"

var searchColumns = []string{"title", "markdown"}

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, n Note) error {
	const query = `
INSERT INTO notes (id, user_id, status, created_at, updated_at, exported_at, title, markdown)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		string(n.Status),
		n.CreatedAt,
		n.UpdatedAt,
		n.ExportedAt,
		n.Title,
		n.Markdown,
	)
	return err
}

func (r *PGRepo) Update(ctx context.Context, n Note) (Note, error) {
	const query = `
UPDATE notes SET
  title = $1,
  markdown = $2,
  updated_at = $3,
  status = CASE WHEN status = 'exported' THEN 'reverted' ELSE status END
WHERE user_id = $4 AND id = $5
RETURNING ` + columns
	return scanOne(r.DB.QueryRowContext(ctx, query, n.Title, n.Markdown, n.UpdatedAt, n.UserID, n.ID))
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Note, error) {
	query := "SELECT " + columns + " FROM notes WHERE user_id = $1 AND id = $2"
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) (Note, error) {
	query := "DELETE FROM notes WHERE user_id = $1 AND id = $2 RETURNING " + columns
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Note], error) {
	where, args := content.ListWhere(q, searchColumns)
	total, err := content.CountRows(ctx, r.DB, table, where, args)
	if err != nil {
		return content.Page[Note]{}, err
	}
	limit, args := content.LimitOffset(q, args)
	query := "SELECT " + columns + " FROM notes " + where + " ORDER BY created_at DESC, id DESC " + limit
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return content.Page[Note]{}, err
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return content.Page[Note]{}, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return content.Page[Note]{}, err
	}
	return content.Page[Note]{Items: items, Total: total}, nil
}

func (r *PGRepo) Transition(ctx context.Context, t content.Transition) (int64, error) {
	return content.ExecTransition(ctx, r.DB, table, t)
}

func (r *PGRepo) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	return content.LatestExportedAt(ctx, r.DB, table, userID)
}

func scan(s content.Scanner) (Note, error) {
	var n Note
	var status string
	var exportedAt sql.NullTime
	if err := s.Scan(
		&n.ID,
		&n.UserID,
		&status,
		&n.CreatedAt,
		&n.UpdatedAt,
		&exportedAt,
		&n.Title,
		&n.Markdown,
	); err != nil {
		return Note{}, err
	}
	n.Status = content.Status(status)
	n.ExportedAt = content.NullTimePtr(exportedAt)
	return n, nil
}

func scanOne(row *sql.Row) (Note, error) {
	n, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, apperr.ErrNotFound
	}
	return n, err
}

func (r *PGRepo) Count(ctx context.Context, q content.ListQuery) (int64, error) {
	where, args := content.ListWhere(q, searchColumns)
	return content.CountRows(ctx, r.DB, table, where, args)
}
