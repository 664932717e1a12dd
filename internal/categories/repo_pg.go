package categories

import (
	"context"
	"database/sql"
	"errors"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, c Category) error {
	const query = `
INSERT INTO categories (id, user_id, name, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.UserID, c.Name, c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return &apperr.DuplicateError{Entity: "category", Value: c.Name}
	}
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Category, error) {
	const query = `
SELECT id, user_id, name, created_at
FROM categories
WHERE user_id = $1 AND id = $2`
	var c Category
	err := r.DB.QueryRowContext(ctx, query, userID, id).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, apperr.ErrNotFound
	}
	return c, err
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]Category, error) {
	const query = `
SELECT id, user_id, name, created_at
FROM categories
WHERE user_id = $1
ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) (Category, error) {
	const query = `
DELETE FROM categories
WHERE user_id = $1 AND id = $2
RETURNING id, user_id, name, created_at`
	var c Category
	err := r.DB.QueryRowContext(ctx, query, userID, id).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, apperr.ErrNotFound
	}
	return c, err
}
