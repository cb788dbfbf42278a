package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	codeForeignKeyViolation = "23503"
	codeUndefinedColumn     = "42703"
)

// SQLState extracts the SQLSTATE code from a lib/pq or pgx error.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsForeignKeyViolation(err error) bool { return SQLState(err) == codeForeignKeyViolation }

// IsUndefinedColumn reports a query that referenced a column the schema does
// not have, e.g. the owner column before its migration ran.
func IsUndefinedColumn(err error) bool { return SQLState(err) == codeUndefinedColumn }
