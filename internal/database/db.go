package database

import (
	"context"
	"database/sql"
	"sync"

	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/pkg/logger"

	_ "github.com/lib/pq"
)

var (
	pool *sql.DB
	once sync.Once
)

// DB returns the global database connection pool (initialized on first use).
// It is nil when DATABASE_URL is unset or invalid.
func DB(ctx context.Context) *sql.DB {
	once.Do(func() {
		cfg := config.Get()
		if cfg.DatabaseURL == "" {
			logger.Warn(ctx, "DATABASE_URL is not set; activity feed disabled")
			return
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error(ctx, "Failed to open database", "error", err)
			return
		}
		db.SetMaxOpenConns(cfg.DBPoolSize)
		db.SetMaxIdleConns(cfg.DBPoolSize / 2)
		pool = db
		logger.Info(ctx, "Database pool initialized", "max_open", cfg.DBPoolSize)
	})
	return pool
}

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	user_email  TEXT NOT NULL,
	task_id     TEXT NOT NULL DEFAULT '',
	reference   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS activity_user_created_idx ON activity (user_email, created_at DESC);
`

// MigrateOrCreateSchema creates the activity table if it does not exist.
func MigrateOrCreateSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		return err
	}
	logger.Info(ctx, "Schema ready")
	return nil
}
