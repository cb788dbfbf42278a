package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/logger"
	"github.com/projectdash/dashboard-backend/internal/metrics"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
	"github.com/projectdash/dashboard-backend/internal/storage/postgres"
)

// ProjectStore is implemented by repository.ProjectRepository and the
// in-memory store.
type ProjectStore interface {
	ListProjects(ctx context.Context, scope domain.Scope) ([]domain.Project, error)
	GetProject(ctx context.Context, scope domain.Scope, id string) (*domain.Project, error)
	CreateProject(ctx context.Context, scope domain.Scope, in domain.ProjectInput) (*domain.Project, error)
	UpdateProject(ctx context.Context, scope domain.Scope, id string, patch domain.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, scope domain.Scope, id string) (domain.ProjectDeletion, error)
}

type Options struct {
	// EnforceTaskOwnership scopes task operations through the parent
	// project's owner.
	EnforceTaskOwnership bool
	// EnforceExportOwnership scopes exports like project reads.
	EnforceExportOwnership bool
	// TxTimeout bounds cascading deletes, which run detached from the request.
	TxTimeout time.Duration
}

// ProjectService handles project-related business logic
type ProjectService struct {
	store   ProjectStore
	scopes  scopeResolver
	metrics *metrics.Metrics
	opts    Options
}

// NewProjectService creates a new project service
func NewProjectService(store ProjectStore, detector capability.Detector, m *metrics.Metrics, opts Options) *ProjectService {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 30 * time.Second
	}
	return &ProjectService{
		store:   store,
		scopes:  scopeResolver{detector: detector, metrics: m},
		metrics: m,
		opts:    opts,
	}
}

// List returns the caller's projects, or every project on a schema without
// the owner column.
func (s *ProjectService) List(ctx context.Context, uid string) ([]domain.Project, error) {
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListProjects(ctx, scope)
	return items, s.scopes.settle(ctx, err)
}

func (s *ProjectService) Get(ctx context.Context, uid, id string) (*domain.Project, error) {
	if !validID(id) {
		return nil, domain.ErrProjectNotFound
	}
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, scope, id)
	return p, s.scopes.settle(ctx, err)
}

func (s *ProjectService) Create(ctx context.Context, uid string, fields domain.ProjectFields) (*domain.Project, error) {
	in, err := fields.Input()
	if err != nil {
		return nil, err
	}
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	p, err := s.store.CreateProject(ctx, scope, in)
	return p, s.scopes.settle(ctx, err)
}

// Update applies a partial update; fields left out of the request keep
// their stored values.
func (s *ProjectService) Update(ctx context.Context, uid, id string, fields domain.ProjectFields) (*domain.Project, error) {
	patch, err := fields.Patch()
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ErrProjectNotFound
	}
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	p, err := s.store.UpdateProject(ctx, scope, id, patch)
	return p, s.scopes.settle(ctx, err)
}

// Delete removes the project and all of its tasks atomically.
func (s *ProjectService) Delete(ctx context.Context, uid, id string) (domain.ProjectDeletion, error) {
	if !validID(id) {
		return domain.ProjectDeletion{ProjectID: id}, domain.ErrProjectNotFound
	}
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return domain.ProjectDeletion{ProjectID: id}, err
	}

	log := logger.FromContext(ctx).With(
		zap.String("operation", "delete_project"),
		zap.String("project_id", id),
	)
	log.Info("project deletion started", zap.Bool("scoped", scope.Filtered()))

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.TxTimeout)
	defer cancel()

	res, err := s.store.DeleteProject(txCtx, scope, id)
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		s.metrics.CascadeDeletion("project", "not_found")
		log.Info("project not found in scope")
		return res, err
	case err != nil:
		s.metrics.CascadeDeletion("project", "rolled_back")
		log.Error("project deletion rolled back", zap.Error(err))
		return res, s.scopes.settle(ctx, err)
	}

	s.metrics.CascadeDeletion("project", "committed")
	log.Info("project deleted", zap.Int64("tasks_deleted", res.TasksDeleted))
	return res, nil
}

// ExportSnapshot loads the project for export. Exports are only owner
// scoped when EnforceExportOwnership is set.
func (s *ProjectService) ExportSnapshot(ctx context.Context, uid, id string) (*domain.Project, error) {
	if !validID(id) {
		return nil, domain.ErrProjectNotFound
	}
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !s.opts.EnforceExportOwnership {
		scope.OwnerID = ""
	}
	p, err := s.store.GetProject(ctx, scope, id)
	return p, s.scopes.settle(ctx, err)
}

type scopeResolver struct {
	detector capability.Detector
	metrics  *metrics.Metrics
}

// resolve never falls back to an unscoped read when detection fails.
func (r scopeResolver) resolve(ctx context.Context, uid string) (domain.Scope, error) {
	present, err := r.detector.HasOwnerColumn(ctx)
	if err != nil {
		r.metrics.CapabilityCheck("error")
		return domain.Scope{}, apperr.Wrap(apperr.KindInternal, "capability detection failed", err)
	}
	if present {
		r.metrics.CapabilityCheck("present")
	} else {
		r.metrics.CapabilityCheck("absent")
	}
	return domain.Scope{OwnerColumn: present, OwnerID: uid}, nil
}

// settle drops a cached capability when the database reports the owner
// column missing, so the next request detects again.
func (r scopeResolver) settle(ctx context.Context, err error) error {
	if err == nil || !postgres.IsUndefinedColumn(err) {
		return err
	}
	if inv, ok := r.detector.(capability.Invalidator); ok {
		if ierr := inv.Invalidate(ctx); ierr != nil {
			logger.FromContext(ctx).Warn("capability invalidation failed", zap.Error(ierr))
		}
	}
	return apperr.Wrap(apperr.KindInternal, "schema changed underneath the request", err)
}

// validID rejects ids the uuid columns could never match.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
