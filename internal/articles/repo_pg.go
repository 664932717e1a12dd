package articles

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/storage/db"
)

const table = "articles"

const columns = "id, user_id, status, created_at, updated_at, exported_at, url, title, quote, category_id"

var searchColumns = []string{"title", "quote", "url"}

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, a Article) error {
	const query = `
INSERT INTO articles (id, user_id, status, created_at, updated_at, exported_at, url, title, quote, category_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
		a.ExportedAt,
		a.URL,
		a.Title,
		a.Quote,
		content.NullString(a.CategoryID),
	)
	if db.IsUniqueViolation(err) {
		return &apperr.DuplicateError{Entity: "article", Value: a.URL}
	}
	return err
}

func (r *PGRepo) Update(ctx context.Context, a Article) (Article, error) {
	const query = `
UPDATE articles SET
  url = $1,
  title = $2,
  quote = $3,
  category_id = $4,
  updated_at = $5,
  status = CASE WHEN status = 'exported' THEN 'reverted' ELSE status END
WHERE user_id = $6 AND id = $7
RETURNING ` + columns
	row := r.DB.QueryRowContext(ctx, query,
		a.URL, a.Title, a.Quote, content.NullString(a.CategoryID), a.UpdatedAt, a.UserID, a.ID)
	out, err := scanOne(row)
	if db.IsUniqueViolation(err) {
		return Article{}, &apperr.DuplicateError{Entity: "article", Value: a.URL}
	}
	return out, err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Article, error) {
	query := "SELECT " + columns + " FROM articles WHERE user_id = $1 AND id = $2"
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) (Article, error) {
	query := "DELETE FROM articles WHERE user_id = $1 AND id = $2 RETURNING " + columns
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Article], error) {
	where, args := content.ListWhere(q, searchColumns)
	total, err := content.CountRows(ctx, r.DB, table, where, args)
	if err != nil {
		return content.Page[Article]{}, err
	}
	limit, args := content.LimitOffset(q, args)
	query := "SELECT " + columns + " FROM articles " + where + " ORDER BY created_at DESC, id DESC " + limit
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return content.Page[Article]{}, err
	}
	defer rows.Close()

	items := make([]Article, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return content.Page[Article]{}, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return content.Page[Article]{}, err
	}
	return content.Page[Article]{Items: items, Total: total}, nil
}

func (r *PGRepo) Transition(ctx context.Context, t content.Transition) (int64, error) {
	return content.ExecTransition(ctx, r.DB, table, t)
}

func (r *PGRepo) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	return content.LatestExportedAt(ctx, r.DB, table, userID)
}

func scan(s content.Scanner) (Article, error) {
	var a Article
	var status string
	var exportedAt sql.NullTime
	var categoryID sql.NullString
	if err := s.Scan(
		&a.ID,
		&a.UserID,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&exportedAt,
		&a.URL,
		&a.Title,
		&a.Quote,
		&categoryID,
	); err != nil {
		return Article{}, err
	}
	a.Status = content.Status(status)
	a.ExportedAt = content.NullTimePtr(exportedAt)
	a.CategoryID = categoryID.String
	return a, nil
}

func scanOne(row *sql.Row) (Article, error) {
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, apperr.ErrNotFound
	}
	return a, err
}

func (r *PGRepo) Count(ctx context.Context, q content.ListQuery) (int64, error) {
	where, args := content.ListWhere(q, searchColumns)
	return content.CountRows(ctx, r.DB, table, where, args)
}
