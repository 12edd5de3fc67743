package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const StateKeyLastMessage = "last_message"

// StateRepo is a small key/value table for poller state.
type StateRepo struct {
	db *sql.DB
}

func NewStateRepo(db *sql.DB) *StateRepo {
	return &StateRepo{db: db}
}

func (r *StateRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO poller_state(key, value, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, toUnixMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("set poller state %s: %w", key, err)
	}

	return nil
}

func (r *StateRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM poller_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get poller state %s: %w", key, err)
	}

	return value, true, nil
}
