package capability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/logger"
)

// Cached keeps a positive answer for ttl. A negative answer is never cached:
// once the column appears every instance must start scoping at the next
// request rather than after the ttl.
type Cached struct {
	inner Detector
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	until   time.Time
	present bool
}

func NewCached(inner Detector, ttl time.Duration) *Cached {
	return &Cached{inner: inner, ttl: ttl, now: time.Now}
}

func (c *Cached) HasOwnerColumn(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.present && c.now().Before(c.until) {
		c.mu.Unlock()
		return true, nil
	}
	c.mu.Unlock()

	present, err := c.inner.HasOwnerColumn(ctx)
	if err != nil {
		return false, err
	}
	if present {
		c.mu.Lock()
		c.present = true
		c.until = c.now().Add(c.ttl)
		c.mu.Unlock()
	}
	return present, nil
}

func (c *Cached) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.present = false
	c.until = time.Time{}
	c.mu.Unlock()

	if inv, ok := c.inner.(Invalidator); ok {
		return inv.Invalidate(ctx)
	}
	return nil
}

const sharedKey = "capability:projects_owner_column"

// Shared stores a positive answer in Redis so that an invalidation issued on
// one instance reaches all of them. Redis failures fall through to inner.
type Shared struct {
	client *redis.Client
	inner  Detector
	ttl    time.Duration
}

func NewShared(client *redis.Client, inner Detector, ttl time.Duration) *Shared {
	return &Shared{client: client, inner: inner, ttl: ttl}
}

func (s *Shared) HasOwnerColumn(ctx context.Context) (bool, error) {
	v, err := s.client.Get(ctx, sharedKey).Result()
	switch {
	case err == nil && v == "1":
		return true, nil
	case err != nil && !errors.Is(err, redis.Nil):
		logger.FromContext(ctx).Warn("capability cache unavailable", zap.Error(err))
	}

	present, err := s.inner.HasOwnerColumn(ctx)
	if err != nil {
		return false, err
	}
	if present {
		if err := s.client.Set(ctx, sharedKey, "1", s.ttl).Err(); err != nil {
			logger.FromContext(ctx).Warn("capability cache write failed", zap.Error(err))
		}
	}
	return present, nil
}

func (s *Shared) Invalidate(ctx context.Context) error {
	return s.client.Del(ctx, sharedKey).Err()
}
