package account

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

func TestRepository_DeleteAccountData_Owned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM projects WHERE user_id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1").AddRow("p2"))
	mock.ExpectExec(`DELETE FROM tasks WHERE project_id = ANY\(\$1::uuid\[\]\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM projects WHERE id = ANY\(\$1::uuid\[\]\) AND user_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM users WHERE firebase_uid = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewRepository(db).DeleteAccountData(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, Deletion{ProjectsDeleted: 2, TasksDeleted: 3, ProfileDeleted: true}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteAccountData_NoProjects(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM projects`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`DELETE FROM users`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := NewRepository(db).DeleteAccountData(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, Deletion{}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteAccountData_LegacySchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM users WHERE firebase_uid = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewRepository(db).DeleteAccountData(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.True(t, res.ProfileDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteAccountData_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM projects`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectExec(`DELETE FROM tasks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM projects`).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err = NewRepository(db).DeleteAccountData(context.Background(), "u1", true)
	assert.Equal(t, apperr.KindTransactionFailure, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
