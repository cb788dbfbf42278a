package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/metrics"
)

// RevocationList denies principals whose account was deleted even while their
// already-issued tokens are still cryptographically valid.
type RevocationList interface {
	Revoke(ctx context.Context, uid string) error
	IsRevoked(ctx context.Context, uid string) (bool, error)
}

const revokedKeyPrefix = "auth:revoked:"

// RedisRevocations shares the deny-list between API instances.
type RedisRevocations struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRevocations(client *redis.Client, ttl time.Duration) *RedisRevocations {
	return &RedisRevocations{client: client, ttl: ttl}
}

func (r *RedisRevocations) Revoke(ctx context.Context, uid string) error {
	if err := r.client.Set(ctx, revokedKeyPrefix+uid, time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", uid, err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, uid string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+uid).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", uid, err)
	}
	return true, nil
}

// MemoryRevocations is the single-instance fallback used when no Redis is
// configured.
type MemoryRevocations struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	revoked map[string]time.Time
}

func NewMemoryRevocations(ttl time.Duration) *MemoryRevocations {
	return &MemoryRevocations{ttl: ttl, now: time.Now, revoked: make(map[string]time.Time)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[uid] = m.now().Add(m.ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.revoked[uid]
	if !ok {
		return false, nil
	}
	if m.now().After(expires) {
		delete(m.revoked, uid)
		return false, nil
	}
	return true, nil
}

// MirroredRevocations writes every revocation to the shared list and to a
// process-local copy. When the shared list cannot be reached, checks are
// answered from the local copy alone and the identity service's own
// revocation check is left to reject tokens of deleted users.
type MirroredRevocations struct {
	shared  RevocationList
	local   *MemoryRevocations
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewMirroredRevocations(shared RevocationList, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *MirroredRevocations {
	if log == nil {
		log = zap.NewNop()
	}
	return &MirroredRevocations{
		shared:  shared,
		local:   NewMemoryRevocations(ttl),
		log:     log,
		metrics: m,
	}
}

// Revoke always records the principal locally; the returned error only
// reports the shared write.
func (r *MirroredRevocations) Revoke(ctx context.Context, uid string) error {
	_ = r.local.Revoke(ctx, uid)
	if err := r.shared.Revoke(ctx, uid); err != nil {
		r.metrics.RevocationBackendError("revoke")
		return err
	}
	return nil
}

func (r *MirroredRevocations) IsRevoked(ctx context.Context, uid string) (bool, error) {
	if revoked, _ := r.local.IsRevoked(ctx, uid); revoked {
		return true, nil
	}
	revoked, err := r.shared.IsRevoked(ctx, uid)
	if err != nil {
		r.metrics.RevocationBackendError("check")
		r.log.Warn("shared revocation list unavailable; using local mirror",
			zap.String("uid", uid),
			zap.Error(err),
		)
		return false, nil
	}
	return revoked, nil
}
