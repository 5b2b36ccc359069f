package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"trademinutes-gateway/internal/database"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/pkg/logger"
)

// ErrUnavailable is returned when no database is configured.
var ErrUnavailable = errors.New("activity store unavailable")

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// Activities is the activity table.
type Activities struct {
	db func(ctx context.Context) *sql.DB
}

// NewActivities returns the store over the global pool.
func NewActivities() *Activities {
	return &Activities{db: database.DB}
}

// NewActivitiesWithDB returns the store over db.
func NewActivitiesWithDB(db *sql.DB) *Activities {
	return &Activities{db: func(context.Context) *sql.DB { return db }}
}

// Insert stores an event. Redelivered events are ignored.
func (r *Activities) Insert(ctx context.Context, ev models.Event) error {
	db := r.db(ctx)
	if db == nil {
		return ErrUnavailable
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity (id, kind, user_email, task_id, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Kind, strings.ToLower(ev.UserEmail), ev.TaskID, ev.Reference, ev.OccurredAt)
	if err != nil {
		logger.Error(ctx, "Repository insert activity failed", "error", err, "id", ev.ID)
		return err
	}
	return nil
}

// List returns the user's most recent activity, newest first.
func (r *Activities) List(ctx context.Context, email string, limit int) ([]models.Activity, error) {
	db := r.db(ctx)
	if db == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, kind, user_email, task_id, reference, created_at FROM activity
		 WHERE user_email = $1 ORDER BY created_at DESC LIMIT $2`,
		strings.ToLower(email), limit)
	if err != nil {
		logger.Error(ctx, "Repository list activity failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	out := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.UserEmail, &a.TaskID, &a.Reference, &a.CreatedAt); err != nil {
			logger.Error(ctx, "Repository scan activity failed", "error", err)
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
