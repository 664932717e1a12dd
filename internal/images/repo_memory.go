package images

import (
	"context"
	"strings"
	"time"

	"content-dumper/internal/shared/content"
)

type MemoryRepo struct {
	store *content.MemStore[Image]
}

func NewMemoryRepo() *MemoryRepo {
	match := func(i Image, needle string) bool {
		return strings.Contains(strings.ToLower(i.FileName), needle)
	}
	unique := func(i Image) string { return i.OriginKey }
	return &MemoryRepo{store: content.NewMemStore("image", metaOf, match, unique)}
}

func (r *MemoryRepo) Create(ctx context.Context, img Image) error {
	return r.store.Insert(ctx, img)
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Image, error) {
	return r.store.Get(ctx, userID, id)
}

func (r *MemoryRepo) FindByKey(ctx context.Context, userID, key string) (Image, error) {
	return r.store.Find(ctx, userID, func(i Image) bool {
		return i.OriginKey == key || (i.ThumbnailKey != "" && i.ThumbnailKey == key)
	})
}

func (r *MemoryRepo) SetThumbnail(ctx context.Context, userID, id, key string, at time.Time) error {
	_, err := r.store.Modify(ctx, userID, id, func(img *Image) {
		img.ThumbnailKey = key
		img.UpdatedAt = at
	})
	return err
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) (Image, error) {
	return r.store.Delete(ctx, userID, id)
}

func (r *MemoryRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Image], error) {
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
