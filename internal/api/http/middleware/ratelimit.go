package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/httputil"
	"github.com/projectdash/dashboard-backend/internal/logger"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. The key is chosen by the
// KeyFunc passed to Handler.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// KeyFunc picks the bucket for a request. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

// ByClientIP buckets every request by client address, so it also covers
// requests that never authenticate.
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByPrincipal must run after the auth middleware.
func ByPrincipal(c *gin.Context) string {
	if p, ok := auth.PrincipalFrom(c); ok {
		return "uid:" + p.UID
	}
	return ""
}

func (rl *RateLimiter) Handler(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			c.Next()
			return
		}

		if !rl.allow(k) {
			logger.FromGin(c).Warn("rate limit exceeded",
				zap.String("key", k),
				zap.String("path", c.FullPath()),
			)
			httputil.Abort(c, apperr.New(apperr.KindRateLimited, "too many requests"))
			return
		}
		c.Next()
	}
}

// Cleanup drops buckets idle for longer than idle and returns how many
// were removed.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}
