package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/metrics"
	"content-dumper/internal/shared/telemetry"
)

// Kinds of webhook payloads.
const (
	KindSlack   = "slack"
	KindDiscord = "discord"
)

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	Kind        string
	URL         string
	Username    string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	// RatePerSecond and Burst feed the token bucket in front of the webhook.
	RatePerSecond float64
	Burst         int
}

// WebhookNotifier posts Slack or Discord payloads.
type WebhookNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewWebhookNotifier builds a notifier. Discord allows 30 requests per minute,
// Slack about one per second; the defaults stay under both.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 5 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 0.5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	name := "notify-" + cfg.Kind
	return &WebhookNotifier{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				telemetry.Warn("notify.breaker_state", map[string]any{
					"circuit": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		}),
	}
}

func (w *WebhookNotifier) Channel() string { return w.config.Kind }

// Notify sends msg, retrying transient failures. Errors come back as
// *apperr.NotificationError.
func (w *WebhookNotifier) Notify(ctx context.Context, msg Message) error {
	requestID := uuid.New().String()
	if err := w.limiter.Wait(ctx); err != nil {
		return w.fail(requestID, fmt.Errorf("rate limiter: %w", err))
	}
	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, w.sendWithRetry(ctx, requestID, msg)
	})
	if err != nil {
		return w.fail(requestID, err)
	}
	metrics.IncNotification(w.config.Kind, true)
	return nil
}

func (w *WebhookNotifier) fail(requestID string, err error) error {
	metrics.IncNotification(w.config.Kind, false)
	telemetry.Error("notify.failed", map[string]any{
		"request_id": requestID,
		"channel":    w.config.Kind,
		"err":        err,
	})
	return &apperr.NotificationError{Channel: w.config.Kind, Err: err}
}

func (w *WebhookNotifier) sendWithRetry(ctx context.Context, requestID string, msg Message) error {
	var lastErr error
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		err := w.send(ctx, msg)
		if err == nil {
			telemetry.Info("notify.sent", map[string]any{
				"request_id": requestID,
				"channel":    w.config.Kind,
				"attempt":    attempt,
			})
			return nil
		}
		lastErr = err

		var delay time.Duration
		var rateLimitErr *RateLimitError
		switch {
		case errors.As(err, &rateLimitErr):
			delay = rateLimitErr.RetryAfter
		case !isRetryableError(err):
			return err
		default:
			delay = w.config.BaseDelay * time.Duration(attempt)
		}
		if attempt == w.config.MaxAttempts {
			break
		}
		telemetry.Warn("notify.retry", map[string]any{
			"request_id": requestID,
			"channel":    w.config.Kind,
			"attempt":    attempt,
			"delay":      delay.String(),
			"err":        err,
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
		}
	}
	return fmt.Errorf("%s notification failed after %d attempts: %w", w.config.Kind, w.config.MaxAttempts, lastErr)
}

func (w *WebhookNotifier) send(ctx context.Context, msg Message) error {
	payload, err := w.payload(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Message: w.config.Kind + " rate limit exceeded", RetryAfter: retryAfter(resp, body)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s client error: %s", w.config.Kind, body)}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s server error: %s", w.config.Kind, body)}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body)
}

func (w *WebhookNotifier) payload(msg Message) ([]byte, error) {
	var v any
	switch w.config.Kind {
	case KindDiscord:
		v = discordPayload(w.config.Username, msg)
	default:
		v = slackPayload(w.config.Username, msg)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	return data, nil
}

// retryAfter reads retry_after from a JSON body, then the Retry-After header,
// and defaults to 5s.
func retryAfter(resp *http.Response, body []byte) time.Duration {
	var parsed struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}
