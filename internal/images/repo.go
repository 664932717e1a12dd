package images

import (
	"context"
	"time"

	"content-dumper/internal/shared/content"
)

type Repo interface {
	Create(ctx context.Context, img Image) error
	Get(ctx context.Context, userID, id string) (Image, error)
	// FindByKey returns the image whose original or thumbnail is stored under key.
	FindByKey(ctx context.Context, userID, key string) (Image, error)
	SetThumbnail(ctx context.Context, userID, id, key string, at time.Time) error
	Delete(ctx context.Context, userID, id string) (Image, error)
	List(ctx context.Context, q content.ListQuery) (content.Page[Image], error)
	Transition(ctx context.Context, t content.Transition) (int64, error)
	LatestExportedAt(ctx context.Context, userID string) (*time.Time, error)
	Count(ctx context.Context, q content.ListQuery) (int64, error)
}
