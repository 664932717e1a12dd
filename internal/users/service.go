package users

import (
	"context"
	"errors"
	"strings"

	"content-dumper/internal/shared/apperr"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth records the identity returned by the IdP on every sign-in.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return apperr.Invalid("user", "user id and email are required")
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, apperr.Invalid("userId", "user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// Resolve finds a user by ID or, when ref contains "@", by email.
func (s *Service) Resolve(ctx context.Context, ref string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return User{}, apperr.Invalid("user", "user is required")
	}
	if strings.Contains(ref, "@") {
		return s.Repo.GetByEmail(ctx, ref)
	}
	return s.Repo.GetByID(ctx, ref)
}
