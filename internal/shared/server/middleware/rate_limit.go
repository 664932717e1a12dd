package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"content-dumper/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// Buckets idle this long are dropped; a fresh bucket starts full.
	limiterIdleTTL  = 30 * time.Minute
	maxLimiterCount = 10000
)

type RateLimitRule struct {
	Rate  float64
	Burst int
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one token bucket per principal and group.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	now      func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxLimiterCount, nil, limiterIdleTTL),
		now:      now,
	}
}

// RateLimit throttles per user id, or per client IP before sign-in. Groups
// without a rule pass through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := UserIDFromContext(c)
		if principal == "" {
			principal = "ip:" + c.ClientIP()
		}
		allowed, retryAfter := cfg.Limiter.Allow(principal+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}
		seconds := int((retryAfter + time.Second - 1) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("too many requests, retry in %ds", seconds))
	}
}

// Allow takes one token for key. When the bucket is empty it reports how long
// until the next token is available.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	lim := l.limiter(key, rule)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

func (l *RateLimiter) limiter(key string, rule RateLimitRule) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
	l.limiters.Add(key, lim)
	return lim
}
