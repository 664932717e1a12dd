package categories

import "context"

type Repo interface {
	Create(ctx context.Context, c Category) error
	Get(ctx context.Context, userID, id string) (Category, error)
	List(ctx context.Context, userID string) ([]Category, error)
	Delete(ctx context.Context, userID, id string) (Category, error)
}
