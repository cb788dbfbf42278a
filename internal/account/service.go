// Package account deletes a principal's account: local rows first, in one
// transaction, then the identity record at the identity service.
package account

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/logger"
	"github.com/projectdash/dashboard-backend/internal/metrics"
)

type Store interface {
	DeleteAccountData(ctx context.Context, uid string, ownerColumn bool) (Deletion, error)
}

// IdentityRemover is the identity-service side of account deletion.
type IdentityRemover interface {
	DeleteUser(ctx context.Context, uid string) error
	RevokeSessions(ctx context.Context, uid string) error
}

type Revoker interface {
	Revoke(ctx context.Context, uid string) error
}

type Options struct {
	// TxTimeout bounds the local transaction, which runs detached from the
	// request so a client disconnect cannot abort it half way.
	TxTimeout time.Duration
	// CleanupTimeout bounds each identity service call.
	CleanupTimeout time.Duration
}

type Service struct {
	store       Store
	capability  capability.Detector
	identity    IdentityRemover
	revocations Revoker
	metrics     *metrics.Metrics
	opts        Options
}

// NewService accepts nil identity and revocations; the corresponding
// cleanup steps are then skipped and logged.
func NewService(store Store, detector capability.Detector, identity IdentityRemover, revocations Revoker, m *metrics.Metrics, opts Options) *Service {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 30 * time.Second
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = 10 * time.Second
	}
	return &Service{
		store:       store,
		capability:  detector,
		identity:    identity,
		revocations: revocations,
		metrics:     m,
		opts:        opts,
	}
}

type Result struct {
	Deletion
	IdentityDeleted bool `json:"identity_deleted"`
}

// DeleteAccount removes local data atomically, then makes a best-effort
// attempt to remove the identity record. Identity failures are logged and
// counted but do not fail the call: local data is already gone.
func (s *Service) DeleteAccount(ctx context.Context, p *auth.Principal) (*Result, error) {
	log := logger.FromContext(ctx).With(
		zap.String("operation", "delete_account"),
		zap.String("uid", p.UID),
	)
	log.Info("account deletion started")

	ownerColumn, err := s.capability.HasOwnerColumn(ctx)
	if err != nil {
		log.Error("capability detection failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindInternal, "capability detection failed", err)
	}
	if !ownerColumn {
		log.Warn("owner column absent; projects cannot be attributed and are left in place")
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.TxTimeout)
	defer cancel()

	deletion, err := s.store.DeleteAccountData(txCtx, p.UID, ownerColumn)
	if err != nil {
		s.metrics.CascadeDeletion("account", "rolled_back")
		log.Error("local data deletion rolled back", zap.Error(err))
		return nil, err
	}
	s.metrics.CascadeDeletion("account", "committed")
	log.Info("local data deleted",
		zap.Int64("projects", deletion.ProjectsDeleted),
		zap.Int64("tasks", deletion.TasksDeleted),
		zap.Bool("profile", deletion.ProfileDeleted),
	)

	if s.revocations != nil {
		if err := s.revocations.Revoke(context.WithoutCancel(ctx), p.UID); err != nil {
			log.Error("revocation list update failed", zap.Error(err))
		}
	}

	res := &Result{Deletion: deletion}
	res.IdentityDeleted = s.removeIdentity(ctx, p.UID, log)

	log.Info("account deletion finished", zap.Bool("identity_deleted", res.IdentityDeleted))
	return res, nil
}

func (s *Service) removeIdentity(ctx context.Context, uid string, log *zap.Logger) bool {
	if s.identity == nil {
		s.metrics.IdentityCleanup("skipped")
		log.Warn("identity service not configured; identity record left for manual cleanup")
		return false
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CleanupTimeout)
	defer cancel()

	err := s.identity.DeleteUser(cctx, uid)
	if err == nil {
		s.metrics.IdentityCleanup("deleted")
		return true
	}

	cleanupErr := apperr.Wrap(apperr.KindExternalCleanupFailure, "identity record deletion failed", err)
	s.metrics.IdentityCleanup("failed")
	log.Error("identity record left behind after local deletion", zap.Error(cleanupErr))

	if rerr := s.identity.RevokeSessions(cctx, uid); rerr != nil {
		log.Error("session revocation failed", zap.Error(rerr))
	}
	return false
}
