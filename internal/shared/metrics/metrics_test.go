package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
)

func TestEventHandlerCounts(t *testing.T) {
	c := contentEventsTotal.WithLabelValues("notes", "created")
	before := testutil.ToFloat64(c)
	err := EventHandler().Handle(context.Background(), events.Event{Domain: content.DomainNotes, Kind: events.KindCreated})
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestHandlerExposesCollectors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/metrics", Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	AddExported("books", "exported", 3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",route="/ping",status="204"}`))
	assert.True(t, strings.Contains(body, `export_rows_total{domain="books",status="exported"}`))
}
