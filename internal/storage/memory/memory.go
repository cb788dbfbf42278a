// Package memory is an in-process store used by tests and local runs
// without a database. Multi-statement operations are applied to a copy of
// the state and swapped in only on success, so a failure leaves nothing
// behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/projectdash/dashboard-backend/internal/account"
	"github.com/projectdash/dashboard-backend/internal/apperr"
	authdomain "github.com/projectdash/dashboard-backend/internal/auth/domain"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

// Stage names a step of a multi-statement operation that can be made to fail.
type Stage string

const (
	StageDeleteTasks    Stage = "delete_tasks"
	StageDeleteProjects Stage = "delete_projects"
	StageDeleteProfile  Stage = "delete_profile"
	StageCommit         Stage = "commit"
)

// ErrUndefinedColumn mirrors the database error for owner-scoped queries
// against a schema without the owner column, SQLSTATE included.
var ErrUndefinedColumn error = &pq.Error{Code: "42703", Message: `column "user_id" does not exist`}

type projectRow struct {
	project domain.Project
	owner   *string
	seq     int64
}

type taskRow struct {
	task domain.Task
	seq  int64
}

type state struct {
	projects map[string]projectRow
	tasks    map[string]taskRow
	profiles map[string]authdomain.Profile
}

func (st state) clone() state {
	out := state{
		projects: make(map[string]projectRow, len(st.projects)),
		tasks:    make(map[string]taskRow, len(st.tasks)),
		profiles: make(map[string]authdomain.Profile, len(st.profiles)),
	}
	for k, v := range st.projects {
		out.projects[k] = v
	}
	for k, v := range st.tasks {
		out.tasks[k] = v
	}
	for k, v := range st.profiles {
		out.profiles[k] = v
	}
	return out
}

// Store keeps projects, tasks and profile markers in memory.
type Store struct {
	mu          sync.RWMutex
	ownerColumn bool
	seq         int64
	st          state
	faults      map[Stage]error
	now         func() time.Time
}

// New creates a store. ownerColumn selects the schema generation.
func New(ownerColumn bool) *Store {
	return &Store{
		ownerColumn: ownerColumn,
		st: state{
			projects: make(map[string]projectRow),
			tasks:    make(map[string]taskRow),
			profiles: make(map[string]authdomain.Profile),
		},
		faults: make(map[Stage]error),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetOwnerColumn simulates running (or reverting) the owner column migration.
// Existing projects keep a null owner.
func (s *Store) SetOwnerColumn(present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerColumn = present
	if !present {
		for id, row := range s.st.projects {
			row.owner = nil
			s.st.projects[id] = row
		}
	}
}

// HasOwnerColumn lets the store act as a capability detector.
func (s *Store) HasOwnerColumn(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerColumn, nil
}

// FailNext makes the next operation reaching stage fail with err.
func (s *Store) FailNext(stage Stage, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[stage] = err
}

// AddProfile records a bare local profile row for uid.
func (s *Store) AddProfile(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.st.profiles[uid] = authdomain.Profile{
		FirebaseUID: uid,
		Email:       uid + "@example.com",
		Role:        authdomain.DefaultRole,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Store) HasProfile(uid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.st.profiles[uid]
	return ok
}

// Counts returns the total number of stored projects and tasks.
func (s *Store) Counts() (projects, tasks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.projects), len(s.st.tasks)
}

// ---------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------

func (s *Store) fault(stage Stage) error {
	err, ok := s.faults[stage]
	if !ok {
		return nil
	}
	delete(s.faults, stage)
	return fmt.Errorf("%s: %w", stage, err)
}

// tx runs fn against a copy of the state and swaps it in on success.
// Callers hold the write lock.
func (s *Store) tx(fn func(st *state) error) error {
	work := s.st.clone()
	if err := fn(&work); err != nil {
		return err
	}
	if err := s.fault(StageCommit); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) checkSchema(scope domain.Scope) error {
	if scope.OwnerColumn && !s.ownerColumn {
		return ErrUndefinedColumn
	}
	return nil
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func visible(row projectRow, scope domain.Scope) bool {
	if !scope.Filtered() {
		return true
	}
	return row.owner != nil && *row.owner == scope.OwnerID
}

func (s *Store) materialize(st state, row projectRow, scope domain.Scope) domain.Project {
	p := row.project
	p.OwnerID = nil
	if scope.OwnerColumn && row.owner != nil {
		owner := *row.owner
		p.OwnerID = &owner
	}
	p.Tasks = tasksOf(st, p.ID)
	return p
}

func tasksOf(st state, projectID string) []domain.Task {
	rows := make([]taskRow, 0)
	for _, t := range st.tasks {
		if t.task.ProjectID == projectID {
			rows = append(rows, t)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].task.CreatedAt.Equal(rows[j].task.CreatedAt) {
			return rows[i].task.CreatedAt.After(rows[j].task.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]domain.Task, len(rows))
	for i, r := range rows {
		out[i] = r.task
	}
	return out
}

// ---------------------------------------------------------------------
// Project store
// ---------------------------------------------------------------------

func (s *Store) ListProjects(_ context.Context, scope domain.Scope) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	rows := make([]projectRow, 0, len(s.st.projects))
	for _, row := range s.st.projects {
		if visible(row, scope) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].project.CreatedAt.Equal(rows[j].project.CreatedAt) {
			return rows[i].project.CreatedAt.After(rows[j].project.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]domain.Project, len(rows))
	for i, row := range rows {
		out[i] = s.materialize(s.st, row, scope)
	}
	return out, nil
}

func (s *Store) GetProject(_ context.Context, scope domain.Scope, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	row, ok := s.st.projects[id]
	if !ok || !visible(row, scope) {
		return nil, domain.ErrProjectNotFound
	}
	p := s.materialize(s.st, row, scope)
	return &p, nil
}

func (s *Store) CreateProject(_ context.Context, scope domain.Scope, in domain.ProjectInput) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	now := s.now()
	row := projectRow{
		project: domain.Project{
			ID:             uuid.NewString(),
			Name:           in.Name,
			Description:    in.Description,
			Status:         in.Status,
			Priority:       in.Priority,
			Deadline:       in.Deadline,
			EstimatedHours: in.EstimatedHours,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		seq: s.nextSeq(),
	}
	if scope.Filtered() {
		owner := scope.OwnerID
		row.owner = &owner
	}
	s.st.projects[row.project.ID] = row

	p := s.materialize(s.st, row, scope)
	return &p, nil
}

func (s *Store) UpdateProject(_ context.Context, scope domain.Scope, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	row, ok := s.st.projects[id]
	if !ok || !visible(row, scope) {
		return nil, domain.ErrProjectNotFound
	}
	row.project = row.project.Apply(patch)
	row.project.UpdatedAt = s.now()
	s.st.projects[id] = row

	p := s.materialize(s.st, row, scope)
	return &p, nil
}

func (s *Store) DeleteProject(_ context.Context, scope domain.Scope, id string) (domain.ProjectDeletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := domain.ProjectDeletion{ProjectID: id}
	if err := s.checkSchema(scope); err != nil {
		return res, err
	}

	row, ok := s.st.projects[id]
	if !ok || !visible(row, scope) {
		return res, domain.ErrProjectNotFound
	}

	err := s.tx(func(st *state) error {
		if err := s.fault(StageDeleteTasks); err != nil {
			return err
		}
		for tid, t := range st.tasks {
			if t.task.ProjectID == id {
				delete(st.tasks, tid)
				res.TasksDeleted++
			}
		}
		if err := s.fault(StageDeleteProjects); err != nil {
			return err
		}
		delete(st.projects, id)
		return nil
	})
	if err != nil {
		return domain.ProjectDeletion{ProjectID: id}, apperr.Wrap(apperr.KindTransactionFailure, "project deletion rolled back", err)
	}
	return res, nil
}

// ---------------------------------------------------------------------
// Task store
// ---------------------------------------------------------------------

// taskInScope returns the task when its parent project is visible.
func (s *Store) taskInScope(scope domain.Scope, id string) (taskRow, bool) {
	t, ok := s.st.tasks[id]
	if !ok {
		return taskRow{}, false
	}
	parent, ok := s.st.projects[t.task.ProjectID]
	if !ok || !visible(parent, scope) {
		return taskRow{}, false
	}
	return t, true
}

func (s *Store) GetTask(_ context.Context, scope domain.Scope, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	t, ok := s.taskInScope(scope, id)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	task := t.task
	return &task, nil
}

func (s *Store) CreateTask(_ context.Context, scope domain.Scope, in domain.TaskInput) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	parent, ok := s.st.projects[in.ProjectID]
	if !ok || !visible(parent, scope) {
		return nil, domain.ErrProjectNotFound
	}

	now := s.now()
	row := taskRow{
		task: domain.Task{
			ID:             uuid.NewString(),
			ProjectID:      in.ProjectID,
			Title:          in.Title,
			Description:    in.Description,
			Status:         in.Status,
			Priority:       in.Priority,
			Assignee:       in.Assignee,
			Deadline:       in.Deadline,
			EstimatedHours: in.EstimatedHours,
			TimeSpent:      in.TimeSpent,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		seq: s.nextSeq(),
	}
	s.st.tasks[row.task.ID] = row

	task := row.task
	return &task, nil
}

func (s *Store) UpdateTask(_ context.Context, scope domain.Scope, id string, patch domain.TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSchema(scope); err != nil {
		return nil, err
	}

	t, ok := s.taskInScope(scope, id)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	t.task = t.task.Apply(patch)
	t.task.UpdatedAt = s.now()
	s.st.tasks[id] = t

	task := t.task
	return &task, nil
}

func (s *Store) DeleteTask(_ context.Context, scope domain.Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSchema(scope); err != nil {
		return err
	}

	if _, ok := s.taskInScope(scope, id); !ok {
		return domain.ErrTaskNotFound
	}
	delete(s.st.tasks, id)
	return nil
}

// ---------------------------------------------------------------------
// Profile store
// ---------------------------------------------------------------------

func (s *Store) GetByFirebaseUID(_ context.Context, uid string) (*authdomain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.st.profiles[uid]
	if !ok {
		return nil, authdomain.ErrProfileNotFound
	}
	return &p, nil
}

// Upsert keeps existing display name and photo when the request leaves
// them unset.
func (s *Store) Upsert(_ context.Context, req *authdomain.SyncProfileRequest) (*authdomain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p, ok := s.st.profiles[req.FirebaseUID]
	if !ok {
		p = authdomain.Profile{FirebaseUID: req.FirebaseUID, Role: authdomain.DefaultRole, CreatedAt: now}
	}
	p.Email = req.Email
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	if req.PhotoURL != nil {
		p.PhotoURL = req.PhotoURL
	}
	p.UpdatedAt = now
	p.LastLoginAt = &now
	s.st.profiles[req.FirebaseUID] = p
	return &p, nil
}

func (s *Store) Update(_ context.Context, uid string, req *authdomain.UpdateProfileRequest) (*authdomain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.st.profiles[uid]
	if !ok {
		return nil, authdomain.ErrProfileNotFound
	}
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	if req.PhotoURL != nil {
		p.PhotoURL = req.PhotoURL
	}
	p.UpdatedAt = s.now()
	s.st.profiles[uid] = p
	return &p, nil
}

// ---------------------------------------------------------------------
// Account store
// ---------------------------------------------------------------------

func (s *Store) DeleteAccountData(_ context.Context, uid string, ownerColumn bool) (account.Deletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res account.Deletion
	err := s.tx(func(st *state) error {
		if ownerColumn {
			if !s.ownerColumn {
				return ErrUndefinedColumn
			}
			owned := make(map[string]struct{})
			for id, row := range st.projects {
				if row.owner != nil && *row.owner == uid {
					owned[id] = struct{}{}
				}
			}

			if err := s.fault(StageDeleteTasks); err != nil {
				return err
			}
			for tid, t := range st.tasks {
				if _, ok := owned[t.task.ProjectID]; ok {
					delete(st.tasks, tid)
					res.TasksDeleted++
				}
			}

			if err := s.fault(StageDeleteProjects); err != nil {
				return err
			}
			for id := range owned {
				delete(st.projects, id)
				res.ProjectsDeleted++
			}
		}

		if err := s.fault(StageDeleteProfile); err != nil {
			return err
		}
		if _, ok := st.profiles[uid]; ok {
			delete(st.profiles, uid)
			res.ProfileDeleted = true
		}
		return nil
	})
	if err != nil {
		return account.Deletion{}, apperr.Wrap(apperr.KindTransactionFailure, "account deletion rolled back", err)
	}
	return res, nil
}
