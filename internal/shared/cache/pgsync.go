package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/telemetry"
)

// InvalidationChannel is the Postgres NOTIFY channel carrying invalidated tags
// between processes sharing one database.
const InvalidationChannel = "content_cache"

type invalidation struct {
	Tags []string `json:"tags"`
}

// BroadcastHandler publishes the tags an event touched on InvalidationChannel
// so caches in other processes (the API while the CLI or worker mutates) drop
// them too.
func BroadcastHandler(db *sql.DB) events.Handler {
	return events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		tags := content.CacheTags(e.Domain, e.UserID, e.Statuses()...)
		if len(tags) == 0 {
			return nil
		}
		payload, err := json.Marshal(invalidation{Tags: tags})
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, InvalidationChannel, string(payload))
		return err
	})
}

// notificationSource is the part of *pgx.Conn the listener needs.
type notificationSource interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// Listener applies invalidations broadcast by other processes to a local cache.
type Listener struct {
	Cache       *Cache
	DatabaseURL string
	// RetryDelay is the pause before reconnecting after the connection drops.
	RetryDelay time.Duration

	connect func(ctx context.Context) (notificationSource, func(), error)
}

// Run listens until ctx is cancelled, reconnecting on failure. The cache is
// purged after every reconnect since notifications sent while disconnected are lost.
func (l *Listener) Run(ctx context.Context) {
	delay := l.RetryDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	connect := l.connect
	if connect == nil {
		connect = l.dial
	}
	for first := true; ; first = false {
		src, closeFn, err := connect(ctx)
		if err == nil {
			if !first {
				l.Cache.Purge()
			}
			telemetry.Info("cache.listen_started", map[string]any{"channel": InvalidationChannel})
			err = l.consume(ctx, src)
			closeFn()
		}
		if ctx.Err() != nil {
			return
		}
		telemetry.Warn("cache.listen_failed", map[string]any{"err": err, "retry_in": delay.String()})
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (l *Listener) dial(ctx context.Context) (notificationSource, func(), error) {
	conn, err := pgx.Connect(ctx, l.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{InvalidationChannel}.Sanitize()); err != nil {
		closeFn()
		return nil, nil, err
	}
	return conn, closeFn, nil
}

func (l *Listener) consume(ctx context.Context, src notificationSource) error {
	for {
		n, err := src.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Channel != InvalidationChannel {
			continue
		}
		var msg invalidation
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			telemetry.Warn("cache.bad_notification", map[string]any{"err": err, "payload": n.Payload})
			continue
		}
		l.Cache.InvalidateTags(msg.Tags...)
	}
}
