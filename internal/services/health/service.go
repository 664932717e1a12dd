package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/telemetry"
)

// Service encapsulates health-related checks.
type Service struct {
	DB *sql.DB
}

// NewService constructs a new health service. db may be nil when the app
// runs on memory repositories.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status reports "ok", or "unavailable" when the database does not answer a ping.
func (s *Service) Status(ctx context.Context) (map[string]string, bool) {
	if s == nil || s.DB == nil {
		return map[string]string{"status": "ok"}, true
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		telemetry.Warn("health.db_ping_failed", map[string]any{"err": err.Error()})
		return map[string]string{"status": "unavailable"}, false
	}
	return map[string]string{"status": "ok"}, true
}

func (s *Service) Handle(c *gin.Context) {
	body, ok := s.Status(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
