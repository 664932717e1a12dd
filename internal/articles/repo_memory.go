package articles

import (
	"context"
	"strings"
	"time"

	"content-dumper/internal/shared/content"
)

type MemoryRepo struct {
	store *content.MemStore[Article]
}

func NewMemoryRepo() *MemoryRepo {
	match := func(a Article, needle string) bool {
		return strings.Contains(strings.ToLower(a.Title), needle) ||
			strings.Contains(strings.ToLower(a.Quote), needle) ||
			strings.Contains(strings.ToLower(a.URL), needle)
	}
	unique := func(a Article) string { return a.URL }
	return &MemoryRepo{store: content.NewMemStore("article", metaOf, match, unique)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Article) error {
	return r.store.Insert(ctx, a)
}

func (r *MemoryRepo) Update(ctx context.Context, a Article) (Article, error) {
	return r.store.Modify(ctx, a.UserID, a.ID, func(existing *Article) {
		existing.URL = a.URL
		existing.Title = a.Title
		existing.Quote = a.Quote
		existing.CategoryID = a.CategoryID
		existing.UpdatedAt = a.UpdatedAt
		existing.Status = content.AfterEdit(existing.Status)
	})
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Article, error) {
	return r.store.Get(ctx, userID, id)
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) (Article, error) {
	return r.store.Delete(ctx, userID, id)
}

func (r *MemoryRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Article], error) {
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
