package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/cache"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/imaging"
	"content-dumper/internal/shared/metrics"
	"content-dumper/internal/shared/pagination"
	"content-dumper/internal/shared/storage/object"
	"content-dumper/internal/shared/telemetry"
)

const domain = content.DomainImages

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 10 << 20

type Service struct {
	Repo   Repo
	Store  object.ObjectStore
	Events *events.Dispatcher
	Cache  *cache.Cache
	Now    func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, dispatcher *events.Dispatcher, c *cache.Cache) *Service {
	return &Service{
		Repo:   repo,
		Store:  store,
		Events: dispatcher,
		Cache:  c,
		Now:    time.Now,
	}
}

func (s *Service) Domain() content.Domain { return domain }

// Upload stores the original bytes, a JPEG thumbnail and the image row.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Image, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Image{}, apperr.Invalid("file", "file name is required")
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Image{}, apperr.Unexpected("images.read", err)
	}
	if len(data) == 0 {
		return Image{}, apperr.Invalid("file", "file is empty")
	}
	if len(data) > MaxUploadBytes {
		return Image{}, apperr.Invalid("file", "file exceeds 10MB")
	}
	contentType, ok := imaging.Sniff(data)
	if !ok {
		return Image{}, &apperr.FileNotAllowedError{FileName: fileName, ContentType: contentType}
	}
	width, height, err := imaging.Size(data)
	if err != nil {
		return Image{}, apperr.Invalid("file", "image could not be decoded")
	}

	originKey, err := object.NewKey(userID, KindOriginal, fileName)
	if err != nil {
		return Image{}, apperr.Invalid("file", "invalid file name")
	}
	size, err := s.Store.Put(ctx, originKey, contentType, bytes.NewReader(data))
	if err != nil {
		return Image{}, apperr.Unexpected("images.put_original", err)
	}

	thumbKey, err := s.putThumbnail(ctx, userID, fileName, data)
	if err != nil {
		telemetry.Warn("images.thumbnail_failed", map[string]any{
			"user_id":   userID,
			"file_name": fileName,
			"err":       err.Error(),
		})
		thumbKey = ""
	}

	img := Image{
		Meta:         content.NewMeta(uuid.NewString(), userID, s.Now().UTC()),
		FileName:     fileName,
		ContentType:  contentType,
		OriginKey:    originKey,
		ThumbnailKey: thumbKey,
		Width:        width,
		Height:       height,
		SizeBytes:    size,
	}
	if err := s.Repo.Create(ctx, img); err != nil {
		s.removeObjects(ctx, img)
		return Image{}, apperr.Unexpected("images.create", err)
	}
	metrics.ObserveImageUpload(size)
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindCreated,
		ID:     img.ID,
		UserID: userID,
		Status: img.Status,
		Title:  img.FileName,
	})
	return img, nil
}

func (s *Service) putThumbnail(ctx context.Context, userID, fileName string, data []byte) (string, error) {
	thumb, err := imaging.MakeThumbnail(data, imaging.ThumbnailMaxWidth, imaging.ThumbnailQuality)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	key, err := object.NewKey(userID, KindThumbnail, base+".jpg")
	if err != nil {
		return "", err
	}
	if _, err := s.Store.Put(ctx, key, thumb.ContentType, bytes.NewReader(thumb.Data)); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes the row first, then both stored objects.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	img, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("images.delete", err)
	}
	s.removeObjects(ctx, img)
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindDeleted,
		ID:     img.ID,
		UserID: userID,
		Status: img.Status,
		Title:  img.FileName,
	})
	return nil
}

func (s *Service) removeObjects(ctx context.Context, img Image) {
	for _, key := range []string{img.OriginKey, img.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("images.object_delete_failed", map[string]any{
				"user_id": img.UserID,
				"key":     key,
				"err":     err.Error(),
			})
		}
	}
}

// Open streams a variant of the caller's image by row id.
func (s *Service) Open(ctx context.Context, userID, kind, id string) (Blob, error) {
	if err := checkKind(kind); err != nil {
		return Blob{}, err
	}
	img, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Blob{}, apperr.Unexpected("images.get", err)
	}
	return s.open(ctx, img, kind)
}

// OpenByKey streams a variant by storage key. Keys outside the caller's
// namespace are reported as missing.
func (s *Service) OpenByKey(ctx context.Context, userID, kind, key string) (Blob, error) {
	if err := checkKind(kind); err != nil {
		return Blob{}, err
	}
	key = strings.TrimPrefix(key, "/")
	if !object.OwnedBy(key, userID) {
		return Blob{}, apperr.ErrNotFound
	}
	img, err := s.Repo.FindByKey(ctx, userID, key)
	if err != nil {
		return Blob{}, apperr.Unexpected("images.find", err)
	}
	return s.open(ctx, img, kind)
}

func (s *Service) open(ctx context.Context, img Image, kind string) (Blob, error) {
	key, contentType := img.keyFor(kind)
	body, err := s.Store.Open(ctx, key)
	if errors.Is(err, object.ErrNotFound) {
		return Blob{}, apperr.ErrNotFound
	}
	if err != nil {
		return Blob{}, apperr.Unexpected("images.open", err)
	}
	b := Blob{Body: body, ContentType: contentType, Size: -1, FileName: img.FileName}
	if key == img.OriginKey {
		b.Size = img.SizeBytes
	}
	return b, nil
}

func checkKind(kind string) error {
	if kind != KindOriginal && kind != KindThumbnail {
		return apperr.Invalid("kind", "must be original or thumbnail")
	}
	return nil
}

// Revert flags one exported image for re-export.
func (s *Service) Revert(ctx context.Context, userID, id string) error {
	n, err := s.Transition(ctx, content.Transition{
		UserID: userID,
		From:   content.StatusExported,
		To:     content.StatusReverted,
		IDs:    []string{id},
		At:     s.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	current, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("images.get", err)
	}
	return apperr.Invalid("status", "image is "+string(current.Status)+", only exported images can be reverted")
}

func (s *Service) ListPending(ctx context.Context, userID string, p pagination.Params) (content.Page[Image], error) {
	page, err := s.Repo.List(ctx, content.ListQuery{
		UserID:   userID,
		Statuses: content.PendingStatuses(),
		Search:   p.Search,
		Limit:    p.Limit,
		Offset:   p.Offset(),
	})
	if err != nil {
		return content.Page[Image]{}, apperr.Unexpected("images.list", err)
	}
	return page, nil
}

func (s *Service) ListExported(ctx context.Context, userID string, p pagination.Params) (content.Page[Image], error) {
	key := cache.Key(string(domain), "list", userID, strconv.Itoa(p.Page), strconv.Itoa(p.Limit), strings.ToLower(p.Search))
	tags := []string{content.CacheTag(domain, content.StatusExported, userID)}
	page, err := cache.Remember(s.Cache, key, tags, func() (content.Page[Image], error) {
		return s.Repo.List(ctx, content.ListQuery{
			UserID:   userID,
			Statuses: []content.Status{content.StatusExported},
			Search:   p.Search,
			Limit:    p.Limit,
			Offset:   p.Offset(),
		})
	})
	if err != nil {
		return content.Page[Image]{}, apperr.Unexpected("images.list_exported", err)
	}
	return page, nil
}

// ExportName is the file name an image gets in the export tree.
func ExportName(img Image) string {
	ext := imaging.Extension(img.ContentType)
	if ext == "" {
		ext = path.Ext(img.FileName)
	}
	return img.ID + ext
}

func (s *Service) Records(ctx context.Context, userID string, statuses []content.Status) ([]content.Record, error) {
	rows, err := content.All(ctx, content.ListQuery{UserID: userID, Statuses: statuses}, s.Repo.List)
	if err != nil {
		return nil, apperr.Unexpected("images.records", err)
	}
	out := make([]content.Record, 0, len(rows))
	for _, img := range rows {
		name := ExportName(img)
		out = append(out, content.Record{
			Domain: domain,
			Meta:   img.Meta,
			Title:  img.FileName,
			Fields: map[string]any{
				"fileName":    img.FileName,
				"contentType": img.ContentType,
				"width":       img.Width,
				"height":      img.Height,
				"sizeBytes":   img.SizeBytes,
			},
			Body:      fmt.Sprintf("![%s](../images/%s)\n", img.FileName, name),
			ObjectKey: img.OriginKey,
			FileName:  name,
		})
	}
	return out, nil
}

// Transition applies a guarded status change and announces it.
func (s *Service) Transition(ctx context.Context, t content.Transition) (int64, error) {
	n, err := s.Repo.Transition(ctx, t)
	if err != nil {
		return 0, apperr.Unexpected("images.transition", err)
	}
	if n > 0 {
		s.Events.Publish(ctx, events.TransitionEvent(domain, t, n))
	}
	return n, nil
}

func (s *Service) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	at, err := s.Repo.LatestExportedAt(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("images.latest_exported", err)
	}
	return at, nil
}

// RegenerateThumbnails builds thumbnails for the caller's images that have
// none, returning how many were written.
func (s *Service) RegenerateThumbnails(ctx context.Context, userID string) (int, error) {
	rows, err := content.All(ctx, content.ListQuery{UserID: userID}, s.Repo.List)
	if err != nil {
		return 0, apperr.Unexpected("images.records", err)
	}
	done := 0
	for _, img := range rows {
		if img.ThumbnailKey != "" {
			continue
		}
		if err := s.regenerate(ctx, img); err != nil {
			telemetry.Warn("images.thumbnail_failed", map[string]any{
				"user_id":  userID,
				"image_id": img.ID,
				"err":      err.Error(),
			})
			continue
		}
		done++
	}
	return done, nil
}

func (s *Service) regenerate(ctx context.Context, img Image) error {
	body, err := s.Store.Open(ctx, img.OriginKey)
	if err != nil {
		return err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadBytes+1))
	if err != nil {
		return err
	}
	key, err := s.putThumbnail(ctx, img.UserID, img.FileName, data)
	if err != nil {
		return err
	}
	return s.Repo.SetThumbnail(ctx, img.UserID, img.ID, key, s.Now().UTC())
}

// Count reports how many of the caller's images are in status.
func (s *Service) Count(ctx context.Context, userID string, status content.Status) (int64, error) {
	n, err := s.Repo.Count(ctx, content.ListQuery{UserID: userID, Statuses: []content.Status{status}})
	if err != nil {
		return 0, apperr.Unexpected("images.count", err)
	}
	return n, nil
}
