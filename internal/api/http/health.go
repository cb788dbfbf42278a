package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = time.Second

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}

// check is one backing dependency. A nil ping means it is not configured.
type check struct {
	name     string
	critical bool
	ping     func(context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	checks      []check
}

// NewHealthHandler reports the database as critical. Redis is optional:
// the capability cache and revocation list fall back to process memory
// without it, so an outage only degrades the status.
func NewHealthHandler(serviceName, version string, db *sql.DB, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{serviceName: serviceName, version: version}

	dbCheck := check{name: "database", critical: true}
	if db != nil {
		dbCheck.ping = db.PingContext
	}
	redisCheck := check{name: "redis"}
	if rdb != nil {
		redisCheck.ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	h.checks = []check{dbCheck, redisCheck}
	return h
}

// HealthCheck answers 503 only when a critical dependency is down.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Checks:    make(map[string]string, len(h.checks)),
	}
	code := http.StatusOK

	for _, chk := range h.checks {
		if chk.ping == nil {
			resp.Checks[chk.name] = "disabled"
			continue
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		err := chk.ping(ctx)
		cancel()
		if err == nil {
			resp.Checks[chk.name] = "up"
			continue
		}

		resp.Checks[chk.name] = "down"
		resp.Status = "degraded"
		if chk.critical {
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
