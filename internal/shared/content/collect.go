package content

import "context"

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

const collectBatch = 200

// All drains a paginated listing.
func All[T any](ctx context.Context, q ListQuery, list func(context.Context, ListQuery) (Page[T], error)) ([]T, error) {
	q.Limit = collectBatch
	q.Offset = 0
	var out []T
	for {
		page, err := list(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) < q.Limit || int64(len(out)) >= page.Total {
			return out, nil
		}
		q.Offset += len(page.Items)
	}
}
