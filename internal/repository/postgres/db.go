package postgres

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/lts-health/exams-api/internal/config"
)

// NewDB opens and pings one logical database. The service uses two:
// primary for clinical/org/token data, secondary for orders/scheduling.
func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", cfg.Name, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database %q: %w", cfg.Name, err)
	}

	return db, nil
}
