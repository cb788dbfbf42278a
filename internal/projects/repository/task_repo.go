package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/projectdash/dashboard-backend/internal/projects/domain"
	"github.com/projectdash/dashboard-backend/internal/storage/postgres"
)

// TaskRepository persists tasks. With a filtered scope every statement is
// joined against the parent project's owner.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) GetTask(ctx context.Context, scope domain.Scope, id string) (*domain.Task, error) {
	q, args := selectTask(scope, id)

	t, err := scanTask(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// CreateTask inserts only when the parent project exists in scope.
func (r *TaskRepository) CreateTask(ctx context.Context, scope domain.Scope, in domain.TaskInput) (*domain.Task, error) {
	q := `
INSERT INTO tasks AS t (id, project_id, title, description, status, priority, assignee, deadline, estimated_hours, time_spent)
SELECT $1::uuid, p.id, $3::text, $4::text, $5::text, $6::text, $7::text, $8::timestamptz, $9::float8, $10::float8
FROM projects p
WHERE p.id = $2`
	args := []any{
		uuid.NewString(),
		in.ProjectID,
		in.Title,
		in.Description,
		string(in.Status),
		string(in.Priority),
		in.Assignee,
		in.Deadline,
		in.EstimatedHours,
		in.TimeSpent,
	}
	if scope.Filtered() {
		q += ` AND p.user_id = $11`
		args = append(args, scope.OwnerID)
	}
	q += `
RETURNING ` + taskColumns("t")

	t, err := scanTask(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) || postgres.IsForeignKeyViolation(err) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

// UpdateTask reads the current row under lock, merges the patch and writes
// the full row back.
func (r *TaskRepository) UpdateTask(ctx context.Context, scope domain.Scope, id string, patch domain.TaskPatch) (*domain.Task, error) {
	sel, args := selectTask(scope, id)
	sel += ` FOR UPDATE OF t`

	var updated domain.Task
	err := postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := scanTask(tx.QueryRowContext(ctx, sel, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("lock task: %w", err)
		}

		merged := current.Apply(patch)
		updated, err = scanTask(tx.QueryRowContext(ctx, `
UPDATE tasks
SET title = $2, description = $3, status = $4, priority = $5, assignee = $6,
    deadline = $7, estimated_hours = $8, time_spent = $9, updated_at = now()
WHERE id = $1
RETURNING `+taskColumns(""),
			id,
			merged.Title,
			merged.Description,
			string(merged.Status),
			string(merged.Priority),
			merged.Assignee,
			merged.Deadline,
			merged.EstimatedHours,
			merged.TimeSpent,
		))
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *TaskRepository) DeleteTask(ctx context.Context, scope domain.Scope, id string) error {
	q := `DELETE FROM tasks t WHERE t.id = $1`
	args := []any{id}
	if scope.Filtered() {
		q = `DELETE FROM tasks t USING projects p WHERE t.id = $1 AND p.id = t.project_id AND p.user_id = $2`
		args = append(args, scope.OwnerID)
	}

	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func selectTask(scope domain.Scope, id string) (string, []any) {
	q := `SELECT ` + taskColumns("t") + ` FROM tasks t`
	args := []any{id}
	if scope.Filtered() {
		q += ` JOIN projects p ON p.id = t.project_id AND p.user_id = $2`
		args = append(args, scope.OwnerID)
	}
	q += ` WHERE t.id = $1`
	return q, args
}
