package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/projectdash/dashboard-backend/internal/auth/domain"
)

const profileColumns = `firebase_uid, email, display_name, photo_url, role, created_at, updated_at, last_login_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByFirebaseUID retrieves a profile by its Firebase UID
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE firebase_uid = $1`, uid)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	return p, err
}

// Upsert creates the profile or refreshes identity fields of an existing one.
// Display name and photo are only overwritten when provided.
func (r *UserRepository) Upsert(ctx context.Context, req *domain.SyncProfileRequest) (*domain.Profile, error) {
	query := `
		INSERT INTO users (firebase_uid, email, display_name, photo_url, role, last_login_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (firebase_uid) DO UPDATE
		SET email = EXCLUDED.email,
		    display_name = COALESCE(EXCLUDED.display_name, users.display_name),
		    photo_url = COALESCE(EXCLUDED.photo_url, users.photo_url),
		    last_login_at = NOW(),
		    updated_at = NOW()
		RETURNING ` + profileColumns

	row := r.db.QueryRowContext(ctx, query,
		req.FirebaseUID,
		req.Email,
		req.DisplayName,
		req.PhotoURL,
		domain.DefaultRole,
	)
	return scanProfile(row)
}

// Update changes user-editable fields; nil fields keep their value.
func (r *UserRepository) Update(ctx context.Context, uid string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    photo_url = COALESCE($3, photo_url),
		    updated_at = NOW()
		WHERE firebase_uid = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, uid, req.DisplayName, req.PhotoURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	return p, err
}

func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var p domain.Profile
	var displayName, photoURL sql.NullString
	var lastLoginAt sql.NullTime

	if err := row.Scan(
		&p.FirebaseUID,
		&p.Email,
		&displayName,
		&photoURL,
		&p.Role,
		&p.CreatedAt,
		&p.UpdatedAt,
		&lastLoginAt,
	); err != nil {
		return nil, err
	}

	if displayName.Valid {
		p.DisplayName = &displayName.String
	}
	if photoURL.Valid {
		p.PhotoURL = &photoURL.String
	}
	if lastLoginAt.Valid {
		p.LastLoginAt = &lastLoginAt.Time
	}
	return &p, nil
}
