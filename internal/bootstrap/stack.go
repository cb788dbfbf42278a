package bootstrap

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/config"
	"github.com/projectdash/dashboard-backend/internal/account"
	"github.com/projectdash/dashboard-backend/internal/auth"
	authrepo "github.com/projectdash/dashboard-backend/internal/auth/repository"
	authservice "github.com/projectdash/dashboard-backend/internal/auth/service"
	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/metrics"
	"github.com/projectdash/dashboard-backend/internal/projects/repository"
	"github.com/projectdash/dashboard-backend/internal/projects/service"
)

// Stores groups the persistence ports used by the HTTP layer.
type Stores struct {
	Projects service.ProjectStore
	Tasks    service.TaskStore
	Accounts account.Store
	Profiles authservice.ProfileStore
}

func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Projects: repository.NewProjectRepository(db),
		Tasks:    repository.NewTaskRepository(db),
		Accounts: account.NewRepository(db),
		Profiles: authrepo.NewUserRepository(db),
	}
}

// BuildDetector assembles the capability chain: a static flag, or schema
// introspection behind a process cache and, with Redis, a shared cache.
func BuildDetector(cfg *config.CapabilityConfig, db *sql.DB, rdb *redis.Client) capability.Detector {
	if cfg.Mode == "static" {
		return capability.Static(cfg.OwnerColumnEnabled)
	}
	var d capability.Detector = capability.NewIntrospector(db)
	if rdb != nil {
		d = capability.NewShared(rdb, d, cfg.CacheTTL)
	}
	return capability.NewCached(d, cfg.CacheTTL)
}

// BuildRevocations prefers Redis so every instance sees a deletion. A Redis
// outage degrades to the local mirror instead of failing every request.
func BuildRevocations(rdb *redis.Client, cfg *config.SecurityConfig, log *zap.Logger, m *metrics.Metrics) auth.RevocationList {
	if rdb != nil {
		return auth.NewMirroredRevocations(auth.NewRedisRevocations(rdb, cfg.RevocationTTL), cfg.RevocationTTL, log, m)
	}
	return auth.NewMemoryRevocations(cfg.RevocationTTL)
}

// BuildIdentity returns nil when Firebase is not configured; requests then
// fail with auth_service_unavailable instead of the process exiting.
func BuildIdentity(ctx context.Context, cfg *config.FirebaseConfig, log *zap.Logger) auth.IdentityService {
	client, err := auth.InitializeFirebase(ctx, cfg)
	if err != nil {
		log.Error("firebase unavailable; authenticated routes will return 503", zap.Error(err))
		return nil
	}
	return auth.NewFirebaseIdentity(client, cfg.CheckRevoked)
}
