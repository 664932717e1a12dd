package categories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"content-dumper/internal/shared/apperr"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]Category
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Category)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.rows {
		if other.UserID == c.UserID && strings.EqualFold(other.Name, c.Name) {
			return &apperr.DuplicateError{Entity: "category", Value: c.Name}
		}
	}
	r.rows[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Category, error) {
	if err := ctx.Err(); err != nil {
		return Category{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return Category{}, apperr.ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Category, 0)
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) (Category, error) {
	if err := ctx.Err(); err != nil {
		return Category{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return Category{}, apperr.ErrNotFound
	}
	delete(r.rows, id)
	return c, nil
}
