package images

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/storage/db"
)

const table = "images"

const columns = "id, user_id, status, created_at, updated_at, exported_at, file_name, content_type, origin_key, thumbnail_key, width, height, size_bytes"

var searchColumns = []string{"file_name"}

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, img Image) error {
	const query = `
INSERT INTO images (id, user_id, status, created_at, updated_at, exported_at, file_name, content_type, origin_key, thumbnail_key, width, height, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.DB.ExecContext(ctx, query,
		img.ID,
		img.UserID,
		string(img.Status),
		img.CreatedAt,
		img.UpdatedAt,
		img.ExportedAt,
		img.FileName,
		img.ContentType,
		img.OriginKey,
		img.ThumbnailKey,
		img.Width,
		img.Height,
		img.SizeBytes,
	)
	if db.IsUniqueViolation(err) {
		return &apperr.DuplicateError{Entity: "image", Value: img.FileName}
	}
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Image, error) {
	query := "SELECT " + columns + " FROM images WHERE user_id = $1 AND id = $2"
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) FindByKey(ctx context.Context, userID, key string) (Image, error) {
	query := "SELECT " + columns + " FROM images WHERE user_id = $1 AND (origin_key = $2 OR thumbnail_key = $2) LIMIT 1"
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, key))
}

func (r *PGRepo) SetThumbnail(ctx context.Context, userID, id, key string, at time.Time) error {
	const query = `UPDATE images SET thumbnail_key = $1, updated_at = $2 WHERE user_id = $3 AND id = $4`
	res, err := r.DB.ExecContext(ctx, query, key, at, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) (Image, error) {
	query := "DELETE FROM images WHERE user_id = $1 AND id = $2 RETURNING " + columns
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) List(ctx context.Context, q content.ListQuery) (content.Page[Image], error) {
	where, args := content.ListWhere(q, searchColumns)
	total, err := content.CountRows(ctx, r.DB, table, where, args)
	if err != nil {
		return content.Page[Image]{}, err
	}
	limit, args := content.LimitOffset(q, args)
	query := "SELECT " + columns + " FROM images " + where + " ORDER BY created_at DESC, id DESC " + limit
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return content.Page[Image]{}, err
	}
	defer rows.Close()

	items := make([]Image, 0)
	for rows.Next() {
		img, err := scan(rows)
		if err != nil {
			return content.Page[Image]{}, err
		}
		items = append(items, img)
	}
	if err := rows.Err(); err != nil {
		return content.Page[Image]{}, err
	}
	return content.Page[Image]{Items: items, Total: total}, nil
}

func (r *PGRepo) Transition(ctx context.Context, t content.Transition) (int64, error) {
	return content.ExecTransition(ctx, r.DB, table, t)
}

func (r *PGRepo) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	return content.LatestExportedAt(ctx, r.DB, table, userID)
}

func scan(s content.Scanner) (Image, error) {
	var img Image
	var status string
	var exportedAt sql.NullTime
	if err := s.Scan(
		&img.ID,
		&img.UserID,
		&status,
		&img.CreatedAt,
		&img.UpdatedAt,
		&exportedAt,
		&img.FileName,
		&img.ContentType,
		&img.OriginKey,
		&img.ThumbnailKey,
		&img.Width,
		&img.Height,
		&img.SizeBytes,
	); err != nil {
		return Image{}, err
	}
	img.Status = content.Status(status)
	img.ExportedAt = content.NullTimePtr(exportedAt)
	return img, nil
}

func scanOne(row *sql.Row) (Image, error) {
	img, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Image{}, apperr.ErrNotFound
	}
	return img, err
}

func (r *PGRepo) Count(ctx context.Context, q content.ListQuery) (int64, error) {
	where, args := content.ListWhere(q, searchColumns)
	return content.CountRows(ctx, r.DB, table, where, args)
}
