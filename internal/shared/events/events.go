// Package events dispatches content domain events to registered handlers.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"content-dumper/internal/shared/content"
)

// Kind names what happened to a row.
type Kind string

const (
	KindCreated  Kind = "created"
	KindUpdated  Kind = "updated"
	KindDeleted  Kind = "deleted"
	KindReverted Kind = "reverted"
	// KindExported is a bulk event raised by the exporter; ID is empty.
	KindExported Kind = "exported"
)

// Event describes one mutation.
type Event struct {
	Domain      content.Domain
	Kind        Kind
	ID          string
	UserID      string
	Status      content.Status
	PriorStatus content.Status
	Title       string
	Count       int64
	OccurredAt  time.Time
}

// Name returns "<domain>.<kind>".
func (e Event) Name() string {
	return fmt.Sprintf("%s.%s", e.Domain, e.Kind)
}

// Statuses lists the statuses whose cached views the event invalidates.
func (e Event) Statuses() []content.Status {
	if e.Kind == KindExported {
		return content.AllStatuses()
	}
	out := make([]content.Status, 0, 2)
	if e.Status != "" {
		out = append(out, e.Status)
	}
	if e.PriorStatus != "" && e.PriorStatus != e.Status {
		out = append(out, e.PriorStatus)
	}
	return out
}

// TransitionEvent describes a guarded bulk status change that moved n rows.
func TransitionEvent(d content.Domain, t content.Transition, n int64) Event {
	kind := KindUpdated
	switch t.To {
	case content.StatusExported:
		kind = KindExported
	case content.StatusReverted:
		kind = KindReverted
	}
	e := Event{
		Domain:      d,
		Kind:        kind,
		UserID:      t.UserID,
		Status:      t.To,
		PriorStatus: t.From,
		Count:       n,
	}
	if len(t.IDs) == 1 {
		e.ID = t.IDs[0]
	}
	return e
}

// Handler reacts to an event.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

type registration struct {
	name    string
	handler Handler
	kinds   map[Kind]bool
}

// Dispatcher fans events out to handlers in registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []registration
	now      func() time.Time
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{now: time.Now}
}

// Register adds h for the given kinds; no kinds means every kind.
func (d *Dispatcher) Register(name string, h Handler, kinds ...Kind) {
	reg := registration{name: name, handler: h}
	if len(kinds) > 0 {
		reg.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			reg.kinds[k] = true
		}
	}
	d.mu.Lock()
	d.handlers = append(d.handlers, reg)
	d.mu.Unlock()
}

// Dispatch runs every matching handler. All handlers run even when one fails;
// their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	if d == nil {
		return nil
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = d.now().UTC()
	}
	d.mu.RLock()
	regs := make([]registration, len(d.handlers))
	copy(regs, d.handlers)
	d.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if reg.kinds != nil && !reg.kinds[e.Kind] {
			continue
		}
		if err := reg.handler.Handle(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reg.name, err))
		}
	}
	return errors.Join(errs...)
}
