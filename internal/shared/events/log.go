package events

import (
	"context"

	"content-dumper/internal/shared/telemetry"
)

// LogHandler writes one structured line per event.
func LogHandler() Handler {
	return HandlerFunc(func(_ context.Context, e Event) error {
		fields := map[string]any{
			"event":   e.Name(),
			"user_id": e.UserID,
			"status":  string(e.Status),
		}
		if e.ID != "" {
			fields["id"] = e.ID
		}
		if e.PriorStatus != "" {
			fields["prior_status"] = string(e.PriorStatus)
		}
		if e.Count > 0 {
			fields["count"] = e.Count
		}
		telemetry.Info("content.event", fields)
		return nil
	})
}

// Publish dispatches e after the mutation has been committed. Handler failures
// are logged and never reach the caller.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	if err := d.Dispatch(ctx, e); err != nil {
		telemetry.Warn("content.event_failed", map[string]any{
			"event":   e.Name(),
			"id":      e.ID,
			"user_id": e.UserID,
			"err":     err,
		})
	}
}
