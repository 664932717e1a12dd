package content

import (
	"errors"
	"fmt"
	"time"
)

// Meta carries the identity, ownership and lifecycle columns every exportable row has.
type Meta struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ExportedAt *time.Time `json:"exportedAt,omitempty"`
}

// NewMeta stamps a fresh unexported row.
func NewMeta(id, userID string, now time.Time) Meta {
	return Meta{
		ID:        id,
		UserID:    userID,
		Status:    StatusUnexported,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ListQuery filters a user's rows by status and free-text search.
type ListQuery struct {
	UserID   string
	Statuses []Status
	Search   string
	Limit    int
	Offset   int
}

// Page is one slice of a listing plus the total number of matching rows.
type Page[T any] struct {
	Items []T
	Total int64
}

// Transition is a guarded bulk status change. Only rows currently in From move to To.
type Transition struct {
	UserID string
	From   Status
	To     Status
	IDs    []string
	At     time.Time
	// ExportedAt restricts the change to rows exported at exactly this instant.
	ExportedAt *time.Time
	// Versions, when set, restricts the change to listed rows whose updated_at
	// still equals the mapped value, so rows edited since they were read stay put.
	Versions map[string]time.Time
}

// Validate checks the transition against the lifecycle.
func (t Transition) Validate() error {
	if t.UserID == "" {
		return errors.New("user id is required")
	}
	if !t.From.Valid() || !t.To.Valid() {
		return fmt.Errorf("invalid status transition %q -> %q", t.From, t.To)
	}
	if !CanTransition(t.From, t.To) {
		return fmt.Errorf("status cannot move from %s to %s", t.From, t.To)
	}
	return nil
}

// Apply moves m to the transition's target status if it matches the guard.
func (t Transition) Apply(m *Meta) bool {
	if m.UserID != t.UserID || m.Status != t.From {
		return false
	}
	if len(t.IDs) > 0 && !containsString(t.IDs, m.ID) {
		return false
	}
	if t.ExportedAt != nil {
		if m.ExportedAt == nil || !m.ExportedAt.Equal(*t.ExportedAt) {
			return false
		}
	}
	if t.Versions != nil {
		seen, ok := t.Versions[m.ID]
		if !ok || !m.UpdatedAt.Equal(seen) {
			return false
		}
	}
	m.Status = t.To
	m.UpdatedAt = t.At
	switch t.To {
	case StatusExported:
		at := t.At
		m.ExportedAt = &at
	case StatusUnexported:
		m.ExportedAt = nil
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
