package notes

import (
	"context"
	"strings"
	"time"

	"content-dumper/internal/shared/content"
)

type MemoryRepo struct {
	store *content.MemStore[Note]
}

func NewMemoryRepo() *MemoryRepo {
	match := func(n Note, needle string) bool {
		return strings.Contains(strings.ToLower(n.Title), needle) ||
			strings.Contains(strings.ToLower(n.Markdown), needle)
	}
	return &MemoryRepo{store: content.NewMemStore("note", metaOf, match, nil)}
}

func (r *MemoryRepo) Create(ctx context.Context, n Note) error {
	return r.store.Insert(ctx, n)
}

func (r *MemoryRepo) Update(ctx context.Context, n Note) (Note, error) {
	return r.store.Modify(ctx, n.UserID, n.ID, func(existing *Note) {
		existing.Title = n.Title
		existing.Markdown = n.Markdown
		existing.UpdatedAt = n.UpdatedAt
		existing.Status = content.AfterEdit(existing.Status)
	})
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Note, error) {
	return r.store.Get(ctx, userID, id)
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) (Note, error) {
	return r.store.Delete(ctx, userID, id)
}

func (r *MemoryRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Note], error) {
	return r.store.List(ctx, q)
}

func (r *MemoryRepo) Transition(ctx context.Context, t content.Transition) (int64, error) {
	return r.store.Transition(ctx, t)
}

func (r *MemoryRepo) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	return r.store.LatestExportedAt(ctx, userID)
}

func (r *MemoryRepo) Count(ctx context.Context, q content.ListQuery) (int64, error) {
	return r.store.Count(ctx, q)
}
