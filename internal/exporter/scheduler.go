package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/notify"
	"content-dumper/internal/shared/telemetry"
	"content-dumper/internal/users"
)

// UserResolver finds the account an unattended export runs for.
type UserResolver interface {
	Resolve(ctx context.Context, ref string) (users.User, error)
}

// Job is the periodic fetch run by the worker.
type Job struct {
	Exporter *Exporter
	Users    UserResolver
	Notifier notify.Notifier
	// UserRef is an email or user id.
	UserRef string
	Dir     string
	Timeout time.Duration
}

// Run resolves the export user, fetches pending rows and announces the result.
// Notification failures are logged only.
func (j *Job) Run(ctx context.Context) (Report, error) {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	u, err := j.Users.Resolve(ctx, j.UserRef)
	if err != nil {
		return Report{}, fmt.Errorf("resolve export user %q: %w", j.UserRef, err)
	}
	report, err := j.Exporter.Fetch(ctx, u.ID, j.Dir, nil)
	if err != nil {
		return report, err
	}
	j.notify(ctx, report)
	return report, nil
}

func (j *Job) notify(ctx context.Context, r Report) {
	if j.Notifier == nil {
		return
	}
	msg := notify.Message{
		Title:     fmt.Sprintf("Export finished: %d rows", r.Moved()),
		Text:      r.Summary(),
		Footer:    r.Dir,
		Timestamp: r.At,
	}
	if err := j.Notifier.Notify(ctx, msg); err != nil {
		nerr := &apperr.NotificationError{Channel: j.Notifier.Channel(), Err: err}
		telemetry.Warn("export.notify_failed", map[string]any{"err": nerr.Error()})
	}
}

// NewScheduler registers job on a standard five-field cron spec evaluated in UTC.
// The caller starts and stops the returned cron.
func NewScheduler(spec string, job *Job) (*cron.Cron, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		started := time.Now()
		telemetry.Info("export.job.started", map[string]any{"user": job.UserRef})
		report, err := job.Run(context.Background())
		if err != nil {
			telemetry.Error("export.job.failed", map[string]any{
				"user": job.UserRef,
				"err":  err.Error(),
			})
			return
		}
		telemetry.Info("export.job.complete", map[string]any{
			"user":        job.UserRef,
			"moved":       report.Moved(),
			"duration_ms": time.Since(started).Milliseconds(),
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
