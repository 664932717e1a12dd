package books

import (
	"context"
	"strings"
	"time"

	"content-dumper/internal/shared/content"
)

type MemoryRepo struct {
	store *content.MemStore[Book]
}

func NewMemoryRepo() *MemoryRepo {
	match := func(b Book, needle string) bool {
		return strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Authors), needle) ||
			strings.Contains(strings.ToLower(b.Markdown), needle)
	}
	unique := func(b Book) string { return b.ISBN }
	return &MemoryRepo{store: content.NewMemStore("book", metaOf, match, unique)}
}

func (r *MemoryRepo) Create(ctx context.Context, b Book) error {
	return r.store.Insert(ctx, b)
}

func (r *MemoryRepo) Update(ctx context.Context, b Book) (Book, error) {
	return r.store.Modify(ctx, b.UserID, b.ID, func(existing *Book) {
		existing.ISBN = b.ISBN
		existing.Title = b.Title
		existing.Authors = b.Authors
		existing.Description = b.Description
		existing.ThumbnailURL = b.ThumbnailURL
		existing.InfoURL = b.InfoURL
		existing.Markdown = b.Markdown
		existing.Rating = b.Rating
		existing.UpdatedAt = b.UpdatedAt
		existing.Status = content.AfterEdit(existing.Status)
	})
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Book, error) {
	return r.store.Get(ctx, userID, id)
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) (Book, error) {
	return r.store.Delete(ctx, userID, id)
}

func (r *MemoryRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Book], error) {
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
