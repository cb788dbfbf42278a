package service

import (
	"context"

	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/metrics"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

type TaskStore interface {
	GetTask(ctx context.Context, scope domain.Scope, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, scope domain.Scope, in domain.TaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, scope domain.Scope, id string, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, scope domain.Scope, id string) error
}

// TaskService handles task operations. Unless EnforceTaskOwnership is set,
// any authenticated caller may act on any task.
type TaskService struct {
	store   TaskStore
	scopes  scopeResolver
	enforce bool
}

func NewTaskService(store TaskStore, detector capability.Detector, m *metrics.Metrics, opts Options) *TaskService {
	return &TaskService{
		store:   store,
		scopes:  scopeResolver{detector: detector, metrics: m},
		enforce: opts.EnforceTaskOwnership,
	}
}

func (s *TaskService) scope(ctx context.Context, uid string) (domain.Scope, error) {
	scope, err := s.scopes.resolve(ctx, uid)
	if err != nil {
		return scope, err
	}
	if !s.enforce {
		scope.OwnerID = ""
	}
	return scope, nil
}

func (s *TaskService) Get(ctx context.Context, uid, id string) (*domain.Task, error) {
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}
	scope, err := s.scope(ctx, uid)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(ctx, scope, id)
	return t, s.scopes.settle(ctx, err)
}

// Create fails with not_found when the parent project does not exist.
func (s *TaskService) Create(ctx context.Context, uid string, fields domain.TaskFields) (*domain.Task, error) {
	in, err := fields.Input()
	if err != nil {
		return nil, err
	}
	if !validID(in.ProjectID) {
		return nil, domain.ErrProjectNotFound
	}
	scope, err := s.scope(ctx, uid)
	if err != nil {
		return nil, err
	}
	t, err := s.store.CreateTask(ctx, scope, in)
	return t, s.scopes.settle(ctx, err)
}

func (s *TaskService) Update(ctx context.Context, uid, id string, fields domain.TaskFields) (*domain.Task, error) {
	patch, err := fields.Patch()
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}
	scope, err := s.scope(ctx, uid)
	if err != nil {
		return nil, err
	}
	t, err := s.store.UpdateTask(ctx, scope, id, patch)
	return t, s.scopes.settle(ctx, err)
}

func (s *TaskService) Delete(ctx context.Context, uid, id string) error {
	if !validID(id) {
		return domain.ErrTaskNotFound
	}
	scope, err := s.scope(ctx, uid)
	if err != nil {
		return err
	}
	return s.scopes.settle(ctx, s.store.DeleteTask(ctx, scope, id))
}
