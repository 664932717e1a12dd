package categories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/validate"
)

type Service struct {
	Repo      Repo
	Events    *events.Dispatcher
	Validator *validate.Validator
	Now       func() time.Time
}

func NewService(repo Repo, dispatcher *events.Dispatcher) *Service {
	return &Service{Repo: repo, Events: dispatcher, Validator: validate.New(), Now: time.Now}
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.Validator.Struct(in); err != nil {
		return Category{}, err
	}
	c := Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return Category{}, apperr.Unexpected("categories.create", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: content.DomainCategories,
		Kind:   events.KindCreated,
		ID:     c.ID,
		UserID: userID,
		Title:  c.Name,
	})
	return c, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Category, error) {
	out, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("categories.list", err)
	}
	return out, nil
}

// Exists reports whether id names one of userID's categories.
func (s *Service) Exists(ctx context.Context, userID, id string) (bool, error) {
	_, err := s.Repo.Get(ctx, userID, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, apperr.Unexpected("categories.get", err)
	}
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	c, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("categories.delete", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: content.DomainCategories,
		Kind:   events.KindDeleted,
		ID:     c.ID,
		UserID: userID,
		Title:  c.Name,
	})
	return nil
}
