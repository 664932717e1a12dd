package users

import (
	"context"

	"content-dumper/internal/shared/apperr"
)

var ErrNotFound = apperr.ErrNotFound

type Repo interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
