package books

import (
	"context"
	"time"

	"content-dumper/internal/shared/content"
)

type Repo interface {
	Create(ctx context.Context, b Book) error
	// Update stores the editable fields and flags an exported row as reverted.
	Update(ctx context.Context, b Book) (Book, error)
	Get(ctx context.Context, userID, id string) (Book, error)
	Delete(ctx context.Context, userID, id string) (Book, error)
	List(ctx context.Context, q content.ListQuery) (content.Page[Book], error)
	Transition(ctx context.Context, t content.Transition) (int64, error)
	LatestExportedAt(ctx context.Context, userID string) (*time.Time, error)
	Count(ctx context.Context, q content.ListQuery) (int64, error)
}
