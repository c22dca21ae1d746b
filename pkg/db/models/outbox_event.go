package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// OutboxEvent is the transactional outbox row written alongside a
// NotificationRequest. The relay publishes PENDING rows and flips them to SENT.
type OutboxEvent struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID    uuid.UUID         `gorm:"column:request_id;type:uuid;not null;index:idx_outbox_events_request_id"`
	TenantID     string            `gorm:"column:tenant_id;type:text;not null"`
	Topic        string            `gorm:"column:topic;type:text;not null"`
	Payload      json.RawMessage   `gorm:"column:payload;type:jsonb;not null"`
	Status       enums.OutboxStatus `gorm:"column:status;type:text;not null;default:PENDING;index:idx_outbox_events_status"`
	AttemptCount int               `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string           `gorm:"column:last_error"`
	CreatedAt    time.Time         `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	SentAt       *time.Time        `gorm:"column:sent_at;type:timestamptz"`
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
