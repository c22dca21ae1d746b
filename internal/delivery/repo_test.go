package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/internal/delivery/providers"
	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
)

func setupDeliveryDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE delivery_attempts (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			tier_attempt INTEGER NOT NULL,
			status TEXT NOT NULL,
			provider_name TEXT NOT NULL,
			error_message TEXT,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			attempted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX idx_delivery_attempts_effect
			ON delivery_attempts (tenant_id, request_id, channel, tier_attempt)`,
		`CREATE TABLE failed_notifications (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			user_id TEXT NOT NULL,
			recipient TEXT NOT NULL,
			payload TEXT NOT NULL,
			channel TEXT NOT NULL DEFAULT '',
			error_code TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			retry_count INTEGER NOT NULL DEFAULT 0,
			is_unrecoverable INTEGER NOT NULL DEFAULT 0,
			correlation_id TEXT NOT NULL,
			failed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			retried_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func baseFailure(requestID uuid.UUID) *models.FailedNotification {
	return &models.FailedNotification{
		RequestID:     requestID,
		TenantID:      "tenant-a",
		EventType:     "order.shipped",
		UserID:        "user-1",
		Recipient:     "user@example.com",
		Payload:       json.RawMessage(`{"order":"42"}`),
		Channel:       enums.ChannelEmail,
		ErrorCode:     "RETRY_EXHAUSTED",
		ErrorMessage:  "smtp timeout",
		RetryCount:    4,
		CorrelationID: "corr-1",
	}
}

func loadFailure(t *testing.T, db *gorm.DB, requestID uuid.UUID) models.FailedNotification {
	t.Helper()
	var row models.FailedNotification
	if err := db.Where("request_id = ?", requestID).First(&row).Error; err != nil {
		t.Fatalf("reload failure: %v", err)
	}
	return row
}

func TestRecordAttempt_DuplicateTupleIsNoOp(t *testing.T) {
	db := setupDeliveryDB(t)
	repo := NewRepository(db)
	requestID := uuid.New()

	first := &models.DeliveryAttempt{
		TenantID:     "tenant-a",
		RequestID:    requestID,
		Channel:      enums.ChannelEmail,
		TierAttempt:  0,
		Status:       enums.AttemptStatusRetrying,
		ProviderName: "email",
	}
	inserted, err := repo.RecordAttempt(context.Background(), first)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	duplicate := &models.DeliveryAttempt{
		TenantID:     "tenant-a",
		RequestID:    requestID,
		Channel:      enums.ChannelEmail,
		TierAttempt:  0,
		Status:       enums.AttemptStatusSent,
		ProviderName: "email",
	}
	inserted, err = repo.RecordAttempt(context.Background(), duplicate)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate tuple must collapse into the existing row")
	}

	var count int64
	if err := db.Model(&models.DeliveryAttempt{}).Count(&count).Error; err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 attempt row, got %d", count)
	}
}

func TestRecordFailure_RetryCountNeverDecreases(t *testing.T) {
	db := setupDeliveryDB(t)
	repo := NewRepository(db)
	requestID := uuid.New()

	if err := repo.RecordFailure(context.Background(), baseFailure(requestID)); err != nil {
		t.Fatalf("initial record: %v", err)
	}

	stale := baseFailure(requestID)
	stale.RetryCount = 2
	if err := repo.RecordFailure(context.Background(), stale); err != nil {
		t.Fatalf("stale merge: %v", err)
	}
	if got := loadFailure(t, db, requestID).RetryCount; got != 4 {
		t.Fatalf("retry count must not decrease, got %d", got)
	}

	ahead := baseFailure(requestID)
	ahead.RetryCount = 5
	if err := repo.RecordFailure(context.Background(), ahead); err != nil {
		t.Fatalf("advancing merge: %v", err)
	}
	if got := loadFailure(t, db, requestID).RetryCount; got != 5 {
		t.Fatalf("expected retry count 5, got %d", got)
	}
}

func TestRecordFailure_UnrecoverableIsOneWay(t *testing.T) {
	db := setupDeliveryDB(t)
	repo := NewRepository(db)
	requestID := uuid.New()

	terminal := baseFailure(requestID)
	terminal.IsUnrecoverable = true
	if err := repo.RecordFailure(context.Background(), terminal); err != nil {
		t.Fatalf("terminal record: %v", err)
	}

	recoverable := baseFailure(requestID)
	recoverable.IsUnrecoverable = false
	if err := repo.RecordFailure(context.Background(), recoverable); err != nil {
		t.Fatalf("recoverable merge: %v", err)
	}
	if !loadFailure(t, db, requestID).IsUnrecoverable {
		t.Fatal("is_unrecoverable must never flip back to false")
	}
}

func TestRecordFailure_EmptyEnvelopeFieldsDoNotErase(t *testing.T) {
	db := setupDeliveryDB(t)
	repo := NewRepository(db)
	requestID := uuid.New()

	if err := repo.RecordFailure(context.Background(), baseFailure(requestID)); err != nil {
		t.Fatalf("initial record: %v", err)
	}

	// A dead letter park knows the request but not the failing channel.
	park := baseFailure(requestID)
	park.Channel = ""
	park.ErrorMessage = ""
	if err := repo.RecordFailure(context.Background(), park); err != nil {
		t.Fatalf("park merge: %v", err)
	}

	stored := loadFailure(t, db, requestID)
	if stored.Channel != enums.ChannelEmail {
		t.Fatalf("channel must survive the merge, got %q", stored.Channel)
	}
	if stored.ErrorMessage != "smtp timeout" {
		t.Fatalf("error message must survive the merge, got %q", stored.ErrorMessage)
	}
}

// Walks one request through every retry tier against a persistently failing
// provider and checks the end state: one attempt row per tier, three marked
// RETRYING and the final one FAILED, plus a single recoverable failure record
// carrying the accumulated retry count.
func TestRetryChain_EndState(t *testing.T) {
	db := setupDeliveryDB(t)
	repo := NewRepository(db)
	publisher := &fakePublisher{}
	resolver := &fakeResolver{order: []enums.Channel{enums.ChannelEmail}}
	email := &scriptedProvider{name: "email", err: errors.New("smtp timeout")}
	processor := newTestProcessor(t, repo, resolver, providers.Registry{enums.ChannelEmail: email}, publisher)

	msg := tierMessage(0)
	for tier := 0; tier <= 3; tier++ {
		msg.RetryCount = tier
		if err := processor.Process(context.Background(), msg); err != nil {
			t.Fatalf("process tier %d: %v", tier, err)
		}
	}

	var attempts []models.DeliveryAttempt
	if err := db.Order("tier_attempt ASC").Find(&attempts).Error; err != nil {
		t.Fatalf("load attempts: %v", err)
	}
	if len(attempts) != 4 {
		t.Fatalf("expected 4 attempt rows, got %d", len(attempts))
	}
	for i, attempt := range attempts[:3] {
		if attempt.Status != enums.AttemptStatusRetrying {
			t.Fatalf("attempt %d: expected RETRYING, got %s", i, attempt.Status)
		}
	}
	if attempts[3].Status != enums.AttemptStatusFailed {
		t.Fatalf("final attempt: expected FAILED, got %s", attempts[3].Status)
	}

	stored := loadFailure(t, db, msg.RequestID)
	if stored.RetryCount != 4 {
		t.Fatalf("expected retry count 4, got %d", stored.RetryCount)
	}
	if stored.IsUnrecoverable {
		t.Fatal("exhausted request must stay recoverable")
	}
	if stored.Channel != enums.ChannelEmail {
		t.Fatalf("expected EMAIL channel, got %q", stored.Channel)
	}
	if stored.ErrorCode != "RETRY_EXHAUSTED" {
		t.Fatalf("expected RETRY_EXHAUSTED, got %q", stored.ErrorCode)
	}

	var failures int64
	if err := db.Model(&models.FailedNotification{}).Count(&failures).Error; err != nil {
		t.Fatalf("count failures: %v", err)
	}
	if failures != 1 {
		t.Fatalf("expected exactly one failure record, got %d", failures)
	}
}
