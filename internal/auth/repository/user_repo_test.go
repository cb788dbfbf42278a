package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/internal/auth/domain"
)

func setupUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewUserRepository(db), mock, db
}

func profileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"firebase_uid", "email", "display_name", "photo_url", "role", "created_at", "updated_at", "last_login_at",
	})
}

func TestUserRepository_GetByFirebaseUID(t *testing.T) {
	repo, mock, db := setupUserRepo(t)
	defer db.Close()

	t.Run("maps nullable columns", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM users WHERE firebase_uid = \$1`).
			WithArgs("u1").
			WillReturnRows(profileRows().AddRow("u1", "a@example.com", "Ada", nil, "user", now, now, nil))

		p, err := repo.GetByFirebaseUID(context.Background(), "u1")
		require.NoError(t, err)
		require.NotNil(t, p.DisplayName)
		assert.Equal(t, "Ada", *p.DisplayName)
		assert.Nil(t, p.PhotoURL)
		assert.Nil(t, p.LastLoginAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users`).
			WithArgs("ghost").
			WillReturnRows(profileRows())

		_, err := repo.GetByFirebaseUID(context.Background(), "ghost")
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Upsert(t *testing.T) {
	repo, mock, db := setupUserRepo(t)
	defer db.Close()

	now := time.Now()
	name := "Ada"
	mock.ExpectQuery(`INSERT INTO users .+ ON CONFLICT \(firebase_uid\) DO UPDATE`).
		WithArgs("u1", "a@example.com", name, nil, domain.DefaultRole).
		WillReturnRows(profileRows().AddRow("u1", "a@example.com", name, nil, "user", now, now, now))

	p, err := repo.Upsert(context.Background(), &domain.SyncProfileRequest{
		FirebaseUID: "u1",
		Email:       "a@example.com",
		DisplayName: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, "user", p.Role)
	require.NotNil(t, p.LastLoginAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock, db := setupUserRepo(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE users`).
		WithArgs("ghost", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "ghost", &domain.UpdateProfileRequest{})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
