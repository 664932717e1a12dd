package content

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"content-dumper/internal/shared/apperr"
)

// MemStore is the in-memory backing shared by the per-domain memory repositories.
type MemStore[T any] struct {
	mu     sync.RWMutex
	rows   map[string]T
	entity string
	meta   func(*T) *Meta
	match  func(T, string) bool
	unique func(T) string
}

// NewMemStore builds a store. match implements search (lower-cased needle); unique,
// when non-nil, returns the per-user unique value (URL, ISBN, ...).
func NewMemStore[T any](entity string, meta func(*T) *Meta, match func(T, string) bool, unique func(T) string) *MemStore[T] {
	return &MemStore[T]{
		rows:   make(map[string]T),
		entity: entity,
		meta:   meta,
		match:  match,
		unique: unique,
	}
}

func (s *MemStore[T]) Insert(ctx context.Context, row T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meta(&row)
	if err := s.checkUnique(row, m); err != nil {
		return err
	}
	s.rows[m.ID] = row
	return nil
}

// Modify applies edit to the stored row under the write lock, so a concurrent
// Transition cannot slip in between the read and the write.
func (s *MemStore[T]) Modify(ctx context.Context, userID, id string, edit func(*T)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || s.meta(&row).UserID != userID {
		return zero, apperr.ErrNotFound
	}
	edit(&row)
	if err := s.checkUnique(row, s.meta(&row)); err != nil {
		return zero, err
	}
	s.rows[id] = row
	return row, nil
}

func (s *MemStore[T]) Get(ctx context.Context, userID, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok || s.meta(&row).UserID != userID {
		return zero, apperr.ErrNotFound
	}
	return row, nil
}

// Find returns the first row owned by userID that satisfies pred.
func (s *MemStore[T]) Find(ctx context.Context, userID string, pred func(T) bool) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if s.meta(&row).UserID == userID && pred(row) {
			return row, nil
		}
	}
	return zero, apperr.ErrNotFound
}

func (s *MemStore[T]) Delete(ctx context.Context, userID, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || s.meta(&row).UserID != userID {
		return zero, apperr.ErrNotFound
	}
	delete(s.rows, id)
	return row, nil
}

// List returns rows newest first, honoring status, search, limit and offset.
func (s *MemStore[T]) List(ctx context.Context, q ListQuery) (Page[T], error) {
	if err := ctx.Err(); err != nil {
		return Page[T]{}, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	s.mu.RLock()
	matched := make([]T, 0, len(s.rows))
	for _, row := range s.rows {
		m := s.meta(&row)
		if m.UserID != q.UserID {
			continue
		}
		if len(q.Statuses) > 0 && !hasStatus(q.Statuses, m.Status) {
			continue
		}
		if needle != "" && (s.match == nil || !s.match(row, needle)) {
			continue
		}
		matched = append(matched, row)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := s.meta(&matched[i]), s.meta(&matched[j])
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := int64(len(matched))
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return Page[T]{Items: []T{}, Total: total}, nil
	}
	end := len(matched)
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}
	return Page[T]{Items: matched[offset:end], Total: total}, nil
}

// Count reports how many rows match q's user, statuses and search.
func (s *MemStore[T]) Count(ctx context.Context, q ListQuery) (int64, error) {
	page, err := s.List(ctx, ListQuery{UserID: q.UserID, Statuses: q.Statuses, Search: q.Search, Limit: 1})
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// Transition applies a guarded status change and reports how many rows moved.
func (s *MemStore[T]) Transition(ctx context.Context, t Transition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := t.Validate(); err != nil {
		return 0, &apperr.InvalidFormatError{Field: "status", Msg: err.Error()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if t.Apply(s.meta(&row)) {
			s.rows[id] = row
			n++
		}
	}
	return n, nil
}

// LatestExportedAt returns the newest export timestamp among exported rows.
func (s *MemStore[T]) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for _, row := range s.rows {
		m := s.meta(&row)
		if m.UserID != userID || m.Status != StatusExported || m.ExportedAt == nil {
			continue
		}
		if latest == nil || m.ExportedAt.After(*latest) {
			at := *m.ExportedAt
			latest = &at
		}
	}
	return latest, nil
}

func (s *MemStore[T]) checkUnique(row T, m *Meta) error {
	if s.unique == nil {
		return nil
	}
	key := s.unique(row)
	if key == "" {
		return nil
	}
	for id, other := range s.rows {
		om := s.meta(&other)
		if id != m.ID && om.UserID == m.UserID && s.unique(other) == key {
			return &apperr.DuplicateError{Entity: s.entity, Value: key}
		}
	}
	return nil
}

func hasStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
