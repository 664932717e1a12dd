package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"content-dumper/internal/shared/auth"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, name, picture_url, permissions, created_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  picture_url = EXCLUDED.picture_url,
  permissions = EXCLUDED.permissions,
  last_seen_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PictureURL,
		strings.Join(user.Permissions, " "),
	)
	return err
}

const selectUser = `
SELECT id, email, name, picture_url, permissions, created_at, last_seen_at
FROM users
`

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUser+"WHERE id = $1 LIMIT 1", userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUser+"WHERE lower(email) = lower($1) LIMIT 1", email))
}

func (r *PGRepo) scanOne(row *sql.Row) (User, error) {
	var user User
	var permissions string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PictureURL,
		&permissions,
		&user.CreatedAt,
		&user.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Permissions = auth.ParsePermissions(permissions)
	return user, nil
}
