package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/capability"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
	"github.com/projectdash/dashboard-backend/internal/projects/repository"
	"github.com/projectdash/dashboard-backend/internal/projects/service"
	"github.com/projectdash/dashboard-backend/internal/storage/memory"
)

var (
	_ service.ProjectStore = (*memory.Store)(nil)
	_ service.TaskStore    = (*memory.Store)(nil)
	_ service.ProjectStore = (*repository.ProjectRepository)(nil)
	_ service.TaskStore    = (*repository.TaskRepository)(nil)
)

type failingDetector struct{}

func (failingDetector) HasOwnerColumn(context.Context) (bool, error) {
	return false, errors.New("information_schema unavailable")
}

func str(s string) *string { return &s }

func newServices(store *memory.Store, detector capability.Detector, opts service.Options) (*service.ProjectService, *service.TaskService) {
	return service.NewProjectService(store, detector, nil, opts), service.NewTaskService(store, detector, nil, opts)
}

func TestProjectService_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	projects, _ := newServices(store, store, service.Options{})

	a, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)
	_, err = projects.Create(ctx, "bob", domain.ProjectFields{Name: str("Beta")})
	require.NoError(t, err)

	list, err := projects.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha", list[0].Name)
	require.NotNil(t, list[0].OwnerID)
	assert.Equal(t, "alice", *list[0].OwnerID)

	_, err = projects.Get(ctx, "bob", a.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = projects.Update(ctx, "bob", a.ID, domain.ProjectFields{Name: str("Hijacked")})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = projects.Delete(ctx, "bob", a.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	got, err := projects.Get(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)
}

func TestProjectService_LegacySchemaIsUnscoped(t *testing.T) {
	ctx := context.Background()
	store := memory.New(false)
	projects, _ := newServices(store, store, service.Options{})

	_, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)
	_, err = projects.Create(ctx, "bob", domain.ProjectFields{Name: str("Beta")})
	require.NoError(t, err)

	list, err := projects.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Beta", list[0].Name, "newest first")
	for _, p := range list {
		assert.Nil(t, p.OwnerID)
	}
}

func TestProjectService_DetectorFailureNeverFallsBack(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	projects, tasks := newServices(store, failingDetector{}, service.Options{})

	_, err := projects.List(ctx, "alice")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = tasks.Create(ctx, "alice", domain.TaskFields{ProjectID: str("7f9c2ad4-4c43-4a53-9d70-7e9d3f7f0c11"), Title: str("t")})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	n, _ := store.Counts()
	assert.Zero(t, n)
}

func TestProjectService_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	projects, tasks := newServices(store, store, service.Options{})

	_, err := projects.Get(ctx, "alice", "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = projects.Delete(ctx, "alice", "42")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = tasks.Get(ctx, "alice", "42")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = tasks.Create(ctx, "alice", domain.TaskFields{ProjectID: str("42"), Title: str("t")})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestProjectService_ValidationBeforeLookup(t *testing.T) {
	store := memory.New(true)
	projects, _ := newServices(store, failingDetector{}, service.Options{})

	_, err := projects.Create(context.Background(), "alice", domain.ProjectFields{Name: str("x"), Priority: str("extreme")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestProjectService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	projects, tasks := newServices(store, store, service.Options{})

	p, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)
	for _, title := range []string{"one", "two"} {
		_, err := tasks.Create(ctx, "alice", domain.TaskFields{ProjectID: str(p.ID), Title: str(title)})
		require.NoError(t, err)
	}

	res, err := projects.Delete(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TasksDeleted)

	np, nt := store.Counts()
	assert.Zero(t, np)
	assert.Zero(t, nt)
}

func TestProjectService_DeleteRollsBack(t *testing.T) {
	for _, stage := range []memory.Stage{memory.StageDeleteTasks, memory.StageDeleteProjects, memory.StageCommit} {
		t.Run(string(stage), func(t *testing.T) {
			ctx := context.Background()
			store := memory.New(true)
			projects, tasks := newServices(store, store, service.Options{})

			p, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
			require.NoError(t, err)
			_, err = tasks.Create(ctx, "alice", domain.TaskFields{ProjectID: str(p.ID), Title: str("one")})
			require.NoError(t, err)

			store.FailNext(stage, errors.New("connection reset"))
			_, err = projects.Delete(ctx, "alice", p.ID)
			assert.Equal(t, apperr.KindTransactionFailure, apperr.KindOf(err))

			np, nt := store.Counts()
			assert.Equal(t, 1, np)
			assert.Equal(t, 1, nt)

			got, err := projects.Get(ctx, "alice", p.ID)
			require.NoError(t, err)
			assert.Len(t, got.Tasks, 1)
		})
	}
}

func TestTaskService_OwnershipFlag(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	projects, _ := newServices(store, store, service.Options{})

	p, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)

	open := service.NewTaskService(store, store, nil, service.Options{})
	task, err := open.Create(ctx, "bob", domain.TaskFields{ProjectIDAlt: str(p.ID), Title: str("from bob")})
	require.NoError(t, err)

	enforced := service.NewTaskService(store, store, nil, service.Options{EnforceTaskOwnership: true})
	_, err = enforced.Get(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = enforced.Update(ctx, "bob", task.ID, domain.TaskFields{Title: str("again")})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.ErrorIs(t, enforced.Delete(ctx, "bob", task.ID), domain.ErrTaskNotFound)
	_, err = enforced.Create(ctx, "bob", domain.TaskFields{ProjectID: str(p.ID), Title: str("x")})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	got, err := enforced.Get(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "from bob", got.Title)
}

func TestTaskService_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	projects, tasks := newServices(store, store, service.Options{})

	p, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)
	task, err := tasks.Create(ctx, "alice", domain.TaskFields{
		ProjectID: str(p.ID),
		Title:     str("Draft"),
		Assignee:  str("ada"),
		Priority:  str("high"),
	})
	require.NoError(t, err)

	updated, err := tasks.Update(ctx, "alice", task.ID, domain.TaskFields{Status: str("completed"), Priority: str("")})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, updated.Status)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
	assert.Equal(t, "Draft", updated.Title)
	assert.Equal(t, "ada", updated.Assignee)
}

func TestProjectService_ExportSnapshotScoping(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)

	open, _ := newServices(store, store, service.Options{})
	p, err := open.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)

	snap, err := open.ExportSnapshot(ctx, "bob", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", snap.Name)

	enforced, _ := newServices(store, store, service.Options{EnforceExportOwnership: true})
	_, err = enforced.ExportSnapshot(ctx, "bob", p.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

type schemaDriftStore struct {
	service.ProjectStore
}

func (schemaDriftStore) ListProjects(context.Context, domain.Scope) ([]domain.Project, error) {
	return nil, &pq.Error{Code: "42703", Message: `column p.user_id does not exist`}
}

type invalidatingDetector struct {
	invalidated int
}

func (d *invalidatingDetector) HasOwnerColumn(context.Context) (bool, error) { return true, nil }
func (d *invalidatingDetector) Invalidate(context.Context) error {
	d.invalidated++
	return nil
}

func TestProjectService_SchemaDriftInvalidatesCapability(t *testing.T) {
	detector := &invalidatingDetector{}
	projects := service.NewProjectService(schemaDriftStore{}, detector, nil, service.Options{})

	_, err := projects.List(context.Background(), "alice")

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 1, detector.invalidated)
}

func TestProjectService_RecoversAfterOwnerColumnRollback(t *testing.T) {
	ctx := context.Background()
	store := memory.New(true)
	detector := capability.NewCached(store, time.Hour)
	projects, _ := newServices(store, detector, service.Options{})

	_, err := projects.Create(ctx, "alice", domain.ProjectFields{Name: str("Alpha")})
	require.NoError(t, err)

	store.SetOwnerColumn(false)

	_, err = projects.List(ctx, "alice")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err), "cached answer is stale for one request")

	list, err := projects.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Nil(t, list[0].OwnerID)
}
