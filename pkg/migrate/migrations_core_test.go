package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestCoreTablesMigrationCoversPipelineTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	var core string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_core_tables.sql") {
			b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
			if err != nil {
				t.Fatalf("read migration: %v", err)
			}
			core = string(b)
		}
	}
	if core == "" {
		t.Fatal("core tables migration not found")
	}

	for _, table := range []string{
		"notification_requests",
		"outbox_events",
		"delivery_attempts",
		"failed_notifications",
		"channel_preferences",
		"channel_policies",
		"api_keys",
		"audit_events",
	} {
		if !strings.Contains(core, "CREATE TABLE "+table) {
			t.Fatalf("core migration missing table %s", table)
		}
	}

	for _, index := range []string{
		"idx_notification_requests_idempotency",
		"idx_delivery_attempts_effect",
		"idx_failed_notifications_request_id",
		"idx_api_keys_key_hash",
	} {
		if !strings.Contains(core, index) {
			t.Fatalf("core migration missing index %s", index)
		}
	}
}
