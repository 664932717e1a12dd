package books

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/storage/db"
)

const table = "books"

const columns = "id, user_id, status, created_at, updated_at, exported_at, isbn, title, authors, description, thumbnail_url, info_url, markdown, rating"

var searchColumns = []string{"title", "authors", "markdown"}

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, b Book) error {
	const query = `
INSERT INTO books (id, user_id, status, created_at, updated_at, exported_at, isbn, title, authors, description, thumbnail_url, info_url, markdown, rating)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.DB.ExecContext(ctx, query,
		b.ID,
		b.UserID,
		string(b.Status),
		b.CreatedAt,
		b.UpdatedAt,
		b.ExportedAt,
		b.ISBN,
		b.Title,
		b.Authors,
		b.Description,
		b.ThumbnailURL,
		b.InfoURL,
		b.Markdown,
		b.Rating,
	)
	if db.IsUniqueViolation(err) {
		return &apperr.DuplicateError{Entity: "book", Value: b.ISBN}
	}
	return err
}

func (r *PGRepo) Update(ctx context.Context, b Book) (Book, error) {
	const query = `
UPDATE books SET
  isbn = $1,
  title = $2,
  authors = $3,
  description = $4,
  thumbnail_url = $5,
  info_url = $6,
  markdown = $7,
  rating = $8,
  updated_at = $9,
  status = CASE WHEN status = 'exported' THEN 'reverted' ELSE status END
WHERE user_id = $10 AND id = $11
RETURNING ` + columns
	row := r.DB.QueryRowContext(ctx, query,
		b.ISBN, b.Title, b.Authors, b.Description, b.ThumbnailURL, b.InfoURL, b.Markdown, b.Rating,
		b.UpdatedAt, b.UserID, b.ID)
	out, err := scanOne(row)
	if db.IsUniqueViolation(err) {
		return Book{}, &apperr.DuplicateError{Entity: "book", Value: b.ISBN}
	}
	return out, err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Book, error) {
	query := "SELECT " + columns + " FROM books WHERE user_id = $1 AND id = $2"
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) (Book, error) {
	query := "DELETE FROM books WHERE user_id = $1 AND id = $2 RETURNING " + columns
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Book], error) {
	where, args := content.ListWhere(q, searchColumns)
	total, err := content.CountRows(ctx, r.DB, table, where, args)
	if err != nil {
		return content.Page[Book]{}, err
	}
	limit, args := content.LimitOffset(q, args)
	query := "SELECT " + columns + " FROM books " + where + " ORDER BY created_at DESC, id DESC " + limit
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return content.Page[Book]{}, err
	}
	defer rows.Close()

	items := make([]Book, 0)
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return content.Page[Book]{}, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return content.Page[Book]{}, err
	}
	return content.Page[Book]{Items: items, Total: total}, nil
}

func (r *PGRepo) Transition(ctx context.Context, t content.Transition) (int64, error) {
	return content.ExecTransition(ctx, r.DB, table, t)
}

func (r *PGRepo) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	return content.LatestExportedAt(ctx, r.DB, table, userID)
}

func scan(s content.Scanner) (Book, error) {
	var b Book
	var status string
	var exportedAt sql.NullTime
	if err := s.Scan(
		&b.ID,
		&b.UserID,
		&status,
		&b.CreatedAt,
		&b.UpdatedAt,
		&exportedAt,
		&b.ISBN,
		&b.Title,
		&b.Authors,
		&b.Description,
		&b.ThumbnailURL,
		&b.InfoURL,
		&b.Markdown,
		&b.Rating,
	); err != nil {
		return Book{}, err
	}
	b.Status = content.Status(status)
	b.ExportedAt = content.NullTimePtr(exportedAt)
	return b, nil
}

func scanOne(row *sql.Row) (Book, error) {
	b, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, apperr.ErrNotFound
	}
	return b, err
}

func (r *PGRepo) Count(ctx context.Context, q content.ListQuery) (int64, error) {
	where, args := content.ListWhere(q, searchColumns)
	return content.CountRows(ctx, r.DB, table, where, args)
}
