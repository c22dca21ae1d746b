package audit

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
)

func setupAuditDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ddl := `CREATE TABLE audit_events (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		tenant_id TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		detail TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestRecorder_WritesEntry(t *testing.T) {
	db := setupAuditDB(t)
	recorder := NewRecorder(db, nil, 8)

	recorder.Record(context.Background(), Entry{
		Actor:    "admin@notifly.io",
		Action:   "dlq.retry",
		TenantID: "tenant-a",
		Subject:  "9f0d2c1e",
		Detail:   map[string]any{"source": "admin-api"},
	})
	recorder.Close()

	var events []models.AuditEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	if events[0].Action != "dlq.retry" || events[0].TenantID != "tenant-a" {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestRecorder_DropsOnFullBuffer(t *testing.T) {
	db := setupAuditDB(t)
	recorder := &Recorder{
		db:      db,
		entries: make(chan Entry, 1),
		done:    make(chan struct{}),
	}
	recorder.entries <- Entry{Actor: "a", Action: "x"}

	// Buffer is full and no drain goroutine runs; Record must not block.
	recorder.Record(context.Background(), Entry{Actor: "b", Action: "y"})

	go recorder.drain()
	recorder.Close()

	var count int64
	if err := db.Model(&models.AuditEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the overflow entry to be dropped, got %d rows", count)
	}
}
