package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/storage/postgres"
)

// Deletion summarises the local rows removed for an account.
type Deletion struct {
	ProjectsDeleted int64 `json:"projects_deleted"`
	TasksDeleted    int64 `json:"tasks_deleted"`
	ProfileDeleted  bool  `json:"profile_deleted"`
}

// Repository removes everything a principal owns in one transaction.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DeleteAccountData deletes the principal's tasks, projects and profile row.
// Without the owner column projects cannot be attributed, so only the profile
// row is removed.
func (r *Repository) DeleteAccountData(ctx context.Context, uid string, ownerColumn bool) (Deletion, error) {
	var res Deletion

	err := postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if ownerColumn {
			ids, err := lockOwnedProjects(ctx, tx, uid)
			if err != nil {
				return err
			}
			if len(ids) > 0 {
				result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ANY($1::uuid[])`, pq.Array(ids))
				if err != nil {
					return fmt.Errorf("delete tasks: %w", err)
				}
				if res.TasksDeleted, err = result.RowsAffected(); err != nil {
					return fmt.Errorf("delete tasks: %w", err)
				}

				result, err = tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ANY($1::uuid[]) AND user_id = $2`, pq.Array(ids), uid)
				if err != nil {
					return fmt.Errorf("delete projects: %w", err)
				}
				if res.ProjectsDeleted, err = result.RowsAffected(); err != nil {
					return fmt.Errorf("delete projects: %w", err)
				}
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE firebase_uid = $1`, uid)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		res.ProfileDeleted = n > 0
		return nil
	})
	if err != nil {
		return Deletion{}, apperr.Wrap(apperr.KindTransactionFailure, "account deletion rolled back", err)
	}
	return res, nil
}

func lockOwnedProjects(ctx context.Context, tx *sql.Tx, uid string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM projects WHERE user_id = $1 FOR UPDATE`, uid)
	if err != nil {
		return nil, fmt.Errorf("lock projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("lock projects: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock projects: %w", err)
	}
	return ids, nil
}
