// Package capability reports whether the schema carries the projects owner
// column, so the API can run both before and after that migration.
package capability

import (
	"context"
	"database/sql"
	"fmt"
)

// Detector answers whether projects.user_id exists. Implementations are
// read-only and safe for concurrent use.
type Detector interface {
	HasOwnerColumn(ctx context.Context) (bool, error)
}

// Invalidator drops cached answers so the next call re-detects.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

const (
	ownerTable  = "projects"
	ownerColumn = "user_id"
)

// Introspector queries information_schema on every call.
type Introspector struct {
	db *sql.DB
}

func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

func (i *Introspector) HasOwnerColumn(ctx context.Context) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1
    FROM information_schema.columns
    WHERE table_schema = current_schema()
      AND table_name = $1
      AND column_name = $2
)`
	var exists bool
	if err := i.db.QueryRowContext(ctx, q, ownerTable, ownerColumn).Scan(&exists); err != nil {
		return false, fmt.Errorf("detect owner column: %w", err)
	}
	return exists, nil
}

// Static is a fixed answer injected from configuration.
type Static bool

func (s Static) HasOwnerColumn(context.Context) (bool, error) { return bool(s), nil }

// Refresh invalidates any cache in d and detects again.
func Refresh(ctx context.Context, d Detector) (bool, error) {
	if inv, ok := d.(Invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			return false, err
		}
	}
	return d.HasOwnerColumn(ctx)
}
