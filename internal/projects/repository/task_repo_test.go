package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

func setupTaskRepo(t *testing.T) (*TaskRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewTaskRepository(db), mock, db
}

func TestTaskRepository_CreateTask(t *testing.T) {
	now := time.Now()
	in := domain.TaskInput{
		ProjectID: projectA,
		Title:     "Ship",
		Status:    domain.TaskTodo,
		Priority:  domain.PriorityMedium,
	}

	t.Run("inserts under an existing project", func(t *testing.T) {
		repo, mock, db := setupTaskRepo(t)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO tasks AS t .+ FROM projects p WHERE p\.id = \$2 RETURNING`).
			WithArgs(sqlmock.AnyArg(), projectA, "Ship", nil, "todo", "medium", "", nil, 0.0, 0.0).
			WillReturnRows(taskRows().
				AddRow(taskA, projectA, "Ship", nil, "todo", "medium", "", nil, 0.0, 0.0, now, now))

		task, err := repo.CreateTask(context.Background(), legacy, in)
		require.NoError(t, err)
		assert.Equal(t, taskA, task.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing project is not found", func(t *testing.T) {
		repo, mock, db := setupTaskRepo(t)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO tasks`).
			WillReturnRows(taskRows())

		_, err := repo.CreateTask(context.Background(), legacy, in)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("foreign key race is not found", func(t *testing.T) {
		repo, mock, db := setupTaskRepo(t)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO tasks`).
			WillReturnError(&pq.Error{Code: "23503"})

		_, err := repo.CreateTask(context.Background(), legacy, in)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("owned scope checks the parent owner", func(t *testing.T) {
		repo, mock, db := setupTaskRepo(t)
		defer db.Close()

		mock.ExpectQuery(`WHERE p\.id = \$2 AND p\.user_id = \$11 RETURNING`).
			WillReturnRows(taskRows())

		_, err := repo.CreateTask(context.Background(), owned, in)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRepository_UpdateTask_MergesUnderLock(t *testing.T) {
	repo, mock, db := setupTaskRepo(t)
	defer db.Close()

	created := time.Now().Add(-time.Hour)
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM tasks t WHERE t\.id = \$1 FOR UPDATE OF t`).
		WithArgs(taskA).
		WillReturnRows(taskRows().
			AddRow(taskA, projectA, "Ship", "v1", "todo", "low", "ada", deadline, 4.0, 1.0, created, created))
	mock.ExpectQuery(`UPDATE tasks SET title = \$2`).
		WithArgs(taskA, "Ship", "v1", "in_progress", "low", "ada", deadline, 4.0, 2.5).
		WillReturnRows(taskRows().
			AddRow(taskA, projectA, "Ship", "v1", "in_progress", "low", "ada", deadline, 4.0, 2.5, created, time.Now()))
	mock.ExpectCommit()

	status := domain.TaskInProgress
	spent := 2.5
	task, err := repo.UpdateTask(context.Background(), legacy, taskA, domain.TaskPatch{Status: &status, TimeSpent: &spent})

	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)
	assert.Equal(t, "ada", task.Assignee)
	assert.Equal(t, 2.5, task.TimeSpent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_UpdateTask_ClearsDescriptionAndDeadline(t *testing.T) {
	repo, mock, db := setupTaskRepo(t)
	defer db.Close()

	created := time.Now().Add(-time.Hour)
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF t`).
		WithArgs(taskA).
		WillReturnRows(taskRows().
			AddRow(taskA, projectA, "Ship", "v1", "todo", "low", "ada", deadline, 4.0, 1.0, created, created))
	mock.ExpectQuery(`UPDATE tasks SET title = \$2`).
		WithArgs(taskA, "Ship", nil, "todo", "low", "ada", nil, 4.0, 1.0).
		WillReturnRows(taskRows().
			AddRow(taskA, projectA, "Ship", nil, "todo", "low", "ada", nil, 4.0, 1.0, created, time.Now()))
	mock.ExpectCommit()

	task, err := repo.UpdateTask(context.Background(), legacy, taskA, domain.TaskPatch{ClearDescription: true, ClearDeadline: true})

	require.NoError(t, err)
	assert.Nil(t, task.Description)
	assert.Nil(t, task.Deadline)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_UpdateTask_NotFound(t *testing.T) {
	repo, mock, db := setupTaskRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`JOIN projects p ON p\.id = t\.project_id AND p\.user_id = \$2 WHERE t\.id = \$1 FOR UPDATE OF t`).
		WithArgs(taskA, "u1").
		WillReturnRows(taskRows())
	mock.ExpectRollback()

	_, err := repo.UpdateTask(context.Background(), owned, taskA, domain.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_DeleteTask(t *testing.T) {
	repo, mock, db := setupTaskRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM tasks t WHERE t\.id = \$1`).
		WithArgs(taskA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteTask(context.Background(), legacy, taskA))

	mock.ExpectExec(`DELETE FROM tasks t USING projects p`).
		WithArgs(taskA, "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteTask(context.Background(), owned, taskA), domain.ErrTaskNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
