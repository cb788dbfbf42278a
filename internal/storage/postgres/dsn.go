package postgres

import (
	"fmt"

	"github.com/projectdash/dashboard-backend/config"
)

// DSN returns the configured DSN or builds a keyword/value one from the
// individual fields. Both lib/pq and pgx accept this form.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode,
	)
}
