package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"content-dumper/internal/shared/telemetry"
)

const (
	DefaultQueueSize   = 64
	DefaultSendTimeout = 30 * time.Second
)

// Queue hands messages to a background worker so callers never wait on the
// webhook. It implements Notifier; Notify only enqueues.
type Queue struct {
	next    Notifier
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	msgs   chan Message
	done   chan struct{}
}

// NewQueue starts a worker that delivers to next. Each delivery gets its own
// context bounded by timeout, detached from the request that enqueued it.
func NewQueue(next Notifier, size int, timeout time.Duration) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	q := &Queue{
		next:    next,
		timeout: timeout,
		msgs:    make(chan Message, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Channel() string { return q.next.Channel() }

// Notify enqueues msg. A full or closed queue drops the message with a warning.
func (q *Queue) Notify(_ context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		telemetry.Warn("notify.dropped", map[string]any{"channel": q.Channel(), "reason": "closed", "title": msg.Title})
		return nil
	}
	select {
	case q.msgs <- msg:
	default:
		telemetry.Warn("notify.dropped", map[string]any{"channel": q.Channel(), "reason": "queue_full", "title": msg.Title})
	}
	return nil
}

// Close stops accepting messages and waits for the queued ones to be sent,
// or for ctx to expire.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.msgs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		telemetry.Warn("notify.drain_timeout", map[string]any{"channel": q.Channel(), "pending": len(q.msgs)})
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for msg := range q.msgs {
		q.deliver(msg)
	}
}

func (q *Queue) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("notify.panic", map[string]any{"channel": q.Channel(), "panic": r, "stack": string(debug.Stack())})
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.Notify(ctx, msg); err != nil {
		telemetry.Warn("notify.event_failed", map[string]any{"channel": q.Channel(), "title": msg.Title, "err": err})
	}
}
