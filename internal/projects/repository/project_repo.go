package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
	"github.com/projectdash/dashboard-backend/internal/storage/postgres"
)

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ListProjects returns the projects visible in scope, newest first, each
// with its tasks.
func (r *ProjectRepository) ListProjects(ctx context.Context, scope domain.Scope) ([]domain.Project, error) {
	q := `SELECT ` + projectColumns("p", scope.OwnerColumn) + ` FROM projects p`
	var args []any
	if scope.Filtered() {
		q += ` WHERE p.user_id = $1`
		args = append(args, scope.OwnerID)
	}
	q += ` ORDER BY p.created_at DESC, p.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows, scope.OwnerColumn)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	tasks, err := r.tasksFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if ts, ok := tasks[out[i].ID]; ok {
			out[i].Tasks = ts
		}
	}
	return out, nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, scope domain.Scope, id string) (*domain.Project, error) {
	q := `SELECT ` + projectColumns("p", scope.OwnerColumn) + ` FROM projects p WHERE p.id = $1`
	args := []any{id}
	if scope.Filtered() {
		q += ` AND p.user_id = $2`
		args = append(args, scope.OwnerID)
	}

	p, err := scanProject(r.db.QueryRowContext(ctx, q, args...), scope.OwnerColumn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	tasks, err := r.tasksFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if ts, ok := tasks[id]; ok {
		p.Tasks = ts
	}
	return &p, nil
}

// CreateProject stores the owner reference when the scope carries one.
func (r *ProjectRepository) CreateProject(ctx context.Context, scope domain.Scope, in domain.ProjectInput) (*domain.Project, error) {
	cols := "id, name, description, status, priority, deadline, estimated_hours"
	args := []any{
		uuid.NewString(),
		in.Name,
		in.Description,
		string(in.Status),
		string(in.Priority),
		in.Deadline,
		in.EstimatedHours,
	}
	if scope.Filtered() {
		cols += ", user_id"
		args = append(args, scope.OwnerID)
	}

	q := `INSERT INTO projects AS p (` + cols + `) VALUES (` + placeholders(1, len(args)) + `)
RETURNING ` + projectColumns("p", scope.OwnerColumn)

	p, err := scanProject(r.db.QueryRowContext(ctx, q, args...), scope.OwnerColumn)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

// UpdateProject applies a partial update; nil patch fields keep their value
// and the clear flags null out description or deadline.
func (r *ProjectRepository) UpdateProject(ctx context.Context, scope domain.Scope, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	q := `
UPDATE projects p
SET name = COALESCE($2, p.name),
    description = CASE WHEN $8::boolean THEN NULL ELSE COALESCE($3, p.description) END,
    status = COALESCE($4, p.status),
    priority = COALESCE($5, p.priority),
    deadline = CASE WHEN $9::boolean THEN NULL ELSE COALESCE($6, p.deadline) END,
    estimated_hours = COALESCE($7, p.estimated_hours),
    updated_at = now()
WHERE p.id = $1`
	args := []any{
		id,
		patch.Name,
		patch.Description,
		enumArg(patch.Status),
		enumArg(patch.Priority),
		patch.Deadline,
		patch.EstimatedHours,
		patch.ClearDescription,
		patch.ClearDeadline,
	}
	if scope.Filtered() {
		q += ` AND p.user_id = $10`
		args = append(args, scope.OwnerID)
	}
	q += `
RETURNING ` + projectColumns("p", scope.OwnerColumn)

	p, err := scanProject(r.db.QueryRowContext(ctx, q, args...), scope.OwnerColumn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	tasks, err := r.tasksFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if ts, ok := tasks[id]; ok {
		p.Tasks = ts
	}
	return &p, nil
}

// DeleteProject removes the project and its tasks in one transaction. The
// project row is locked first so a concurrent task insert waits for the
// outcome.
func (r *ProjectRepository) DeleteProject(ctx context.Context, scope domain.Scope, id string) (domain.ProjectDeletion, error) {
	res := domain.ProjectDeletion{ProjectID: id}

	lock := `SELECT p.id FROM projects p WHERE p.id = $1`
	del := `DELETE FROM projects p WHERE p.id = $1`
	args := []any{id}
	if scope.Filtered() {
		lock += ` AND p.user_id = $2`
		del += ` AND p.user_id = $2`
		args = append(args, scope.OwnerID)
	}
	lock += ` FOR UPDATE`

	err := postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked string
		if err := tx.QueryRowContext(ctx, lock, args...).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrProjectNotFound
			}
			return fmt.Errorf("lock project: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if res.TasksDeleted, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}

		result, err = tx.ExecContext(ctx, del, args...)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("delete project: %d rows affected", n)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return res, err
		}
		return res, apperr.Wrap(apperr.KindTransactionFailure, "project deletion rolled back", err)
	}
	return res, nil
}

// tasksFor loads tasks of the given projects keyed by project id, newest first.
func (r *ProjectRepository) tasksFor(ctx context.Context, projectIDs []string) (map[string][]domain.Task, error) {
	q := `SELECT ` + taskColumns("t") + ` FROM tasks t
WHERE t.project_id = ANY($1::uuid[])
ORDER BY t.created_at DESC, t.id`

	rows, err := r.db.QueryContext(ctx, q, pq.Array(projectIDs))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Task, len(projectIDs))
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out[t.ProjectID] = append(out[t.ProjectID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}
