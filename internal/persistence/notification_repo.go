package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/skobkin/motdwatch/internal/notifications"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// ReplaceAll stores items as the complete list, keeping their order.
func (r *NotificationRepo) ReplaceAll(ctx context.Context, items []notifications.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace notifications tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	//goland:noinspection SqlWithoutWhere
	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications;`); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications(id, position, title, body, unread, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert notification: %w", err)
	}
	defer stmt.Close()

	for i, n := range items {
		if _, err := stmt.ExecContext(ctx, n.ID, i, n.Title, n.Body, boolToInt(n.Unread), toUnixMillis(n.CreatedAt)); err != nil {
			return fmt.Errorf("insert notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace notifications tx: %w", err)
	}

	return nil
}

func (r *NotificationRepo) ListOrdered(ctx context.Context) ([]notifications.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, body, unread, created_at
		FROM notifications
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notifications.Notification, 0)
	for rows.Next() {
		var (
			n         notifications.Notification
			unread    int
			createdMs int64
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &unread, &createdMs); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Unread = unread != 0
		n.CreatedAt = fromUnixMillis(createdMs)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return out, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}

	return 0
}
