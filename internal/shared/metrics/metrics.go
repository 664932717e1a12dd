package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-dumper/internal/shared/events"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	contentEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_events_total",
			Help: "Domain events dispatched by domain and kind",
		},
		[]string{"domain", "kind"},
	)

	exportedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_rows_total",
			Help: "Rows moved by export jobs by domain and target status",
		},
		[]string{"domain", "status"},
	)

	exportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Duration of export runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)

	imageUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_upload_bytes",
			Help:    "Size of uploaded images",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
		},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Viewer cache lookups by result",
		},
		[]string{"result"},
	)
)

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// EventHandler counts dispatched domain events.
func EventHandler() events.Handler {
	return events.HandlerFunc(func(_ context.Context, e events.Event) error {
		contentEventsTotal.WithLabelValues(string(e.Domain), string(e.Kind)).Inc()
		return nil
	})
}

// AddExported records rows moved by an export job.
func AddExported(domain, status string, n int64) {
	if n <= 0 {
		return
	}
	exportedRowsTotal.WithLabelValues(domain, status).Add(float64(n))
}

// ObserveExport records the duration of an export run.
func ObserveExport(d time.Duration) {
	exportDuration.Observe(d.Seconds())
}

// IncNotification records one delivery attempt outcome.
func IncNotification(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notificationsTotal.WithLabelValues(channel, result).Inc()
}

// ObserveImageUpload records an uploaded image size.
func ObserveImageUpload(size int64) {
	imageUploadBytes.Observe(float64(size))
}

// IncCacheLookup records a cache hit or miss.
func IncCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}
