package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 5433, User: "app", Password: "pw", Name: "dash"}
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=dash sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")

	cfg.DSN = "postgres://app@db/dash"
	assert.Equal(t, "postgres://app@db/dash", DSN(cfg))
}

func TestSQLState(t *testing.T) {
	pqFK := fmt.Errorf("insert task: %w", &pq.Error{Code: "23503"})
	pgxFK := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsForeignKeyViolation(pqFK))
	assert.True(t, IsForeignKeyViolation(pgxFK))
	assert.Equal(t, "23503", SQLState(pgxFK))
	assert.True(t, IsUndefinedColumn(&pq.Error{Code: "42703"}))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
	assert.Equal(t, "", SQLState(nil))
}

func TestWithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM tasks`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(context.Background(), `DELETE FROM tasks WHERE project_id = $1`, "p1")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := WithTx(context.Background(), db, func(*sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports commit failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

		err := WithTx(context.Background(), db, func(*sql.Tx) error { return nil })
		assert.ErrorContains(t, err, "commit tx")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
