package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/skobkin/motdwatch/internal/notifications"
)

func TestClearDatabase_ClearsAllTables(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := NewNotificationRepo(db).ReplaceAll(ctx, []notifications.Notification{notifications.New("a", "b")}); err != nil {
		t.Fatalf("seed notifications: %v", err)
	}
	if err := NewStateRepo(db).Set(ctx, StateKeyLastMessage, "a\nb"); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	if err := ClearDatabase(ctx, db); err != nil {
		t.Fatalf("clear database: %v", err)
	}

	for _, table := range []string{"notifications", "poller_state"} {
		var count int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("expected %s to be empty, got %d rows", table, count)
		}
	}
}

func TestClearDatabase_NilDB(t *testing.T) {
	if err := ClearDatabase(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
