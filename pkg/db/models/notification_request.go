package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// NotificationRequest is the accepted ingestion record. A row here means the
// request was durably captured; delivery outcomes live in delivery_attempts.
type NotificationRequest struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID      uuid.UUID           `gorm:"column:request_id;type:uuid;not null;uniqueIndex:idx_notification_requests_request_id"`
	TenantID       string              `gorm:"column:tenant_id;type:text;not null;uniqueIndex:idx_notification_requests_idempotency,priority:1"`
	IdempotencyKey *string             `gorm:"column:idempotency_key;type:text;uniqueIndex:idx_notification_requests_idempotency,priority:2"`
	EventType      string              `gorm:"column:event_type;type:text;not null"`
	UserID         string              `gorm:"column:user_id;type:text;not null"`
	Recipient      string              `gorm:"column:recipient;type:text;not null"`
	Payload        json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	PayloadHash    string              `gorm:"column:payload_hash;type:text;not null"`
	Status         enums.RequestStatus `gorm:"column:status;type:text;not null;default:ACCEPTED"`
	CorrelationID  string              `gorm:"column:correlation_id;type:text;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;type:timestamptz;autoUpdateTime"`
}

func (r *NotificationRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
