// Package notify delivers short messages to a chat webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/telemetry"
)

// Message is one notification.
type Message struct {
	Title     string
	Text      string
	URL       string
	Footer    string
	Timestamp time.Time
}

// Notifier sends messages. Implementations handle rate limiting and retries.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Channel() string
}

// Noop discards every message.
type Noop struct{}

func (Noop) Notify(context.Context, Message) error { return nil }
func (Noop) Channel() string                       { return "none" }

// RateLimitError represents a 429 rate limit error from a webhook service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx client error from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string { return e.Message }

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// isRetryableError reports whether err is worth another attempt. Client errors
// are final; rate limits are handled by the caller.
func isRetryableError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rateLimitErr *RateLimitError
	return !errors.As(err, &rateLimitErr)
}

func truncate(text string, maxLength int) string {
	const suffix = "..."
	if len(text) <= maxLength {
		return text
	}
	cut := maxLength - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + suffix
}

// EventHandler announces newly created content. Pass a Queue so delivery
// happens off the request path. Failures are logged and swallowed so the
// triggering action still succeeds.
func EventHandler(n Notifier) events.Handler {
	return events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if e.Kind != events.KindCreated {
			return nil
		}
		title := e.Title
		if title == "" {
			title = e.ID
		}
		msg := Message{
			Title:     fmt.Sprintf("New %s", singular(string(e.Domain))),
			Text:      title,
			Footer:    string(e.Domain),
			Timestamp: e.OccurredAt,
		}
		if err := n.Notify(ctx, msg); err != nil {
			telemetry.Warn("notify.event_failed", map[string]any{
				"event": e.Name(),
				"id":    e.ID,
				"err":   err,
			})
		}
		return nil
	})
}

func singular(domain string) string {
	switch domain {
	case "categories":
		return "category"
	case "":
		return "item"
	}
	if domain[len(domain)-1] == 's' {
		return domain[:len(domain)-1]
	}
	return domain
}

// New returns a webhook notifier for slack or discord, or Noop when
// notifications are disabled.
func New(kind, url, username string) Notifier {
	if url == "" || (kind != KindSlack && kind != KindDiscord) {
		return Noop{}
	}
	return NewWebhookNotifier(WebhookConfig{Kind: kind, URL: url, Username: username})
}
