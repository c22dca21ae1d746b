package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// FailedNotification is a DLQ record for a request that exhausted its retries
// or hit a terminal provider error. IsUnrecoverable transitions one way:
// once true it never flips back, and retries are refused.
type FailedNotification struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID       uuid.UUID       `gorm:"column:request_id;type:uuid;not null;uniqueIndex:idx_failed_notifications_request_id"`
	TenantID        string          `gorm:"column:tenant_id;type:text;not null;index:idx_failed_notifications_tenant_id"`
	EventType       string          `gorm:"column:event_type;type:text;not null"`
	UserID          string          `gorm:"column:user_id;type:text;not null"`
	Recipient       string          `gorm:"column:recipient;type:text;not null"`
	Payload         json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	Channel         enums.Channel   `gorm:"column:channel;type:text;not null;default:''"`
	ErrorCode       string          `gorm:"column:error_code;type:text;not null"`
	ErrorMessage    string          `gorm:"column:error_message;type:text;not null;default:''"`
	RetryCount      int             `gorm:"column:retry_count;not null;default:0"`
	IsUnrecoverable bool            `gorm:"column:is_unrecoverable;not null;default:false"`
	CorrelationID   string          `gorm:"column:correlation_id;type:text;not null"`
	FailedAt        time.Time       `gorm:"column:failed_at;type:timestamptz;autoCreateTime"`
	RetriedAt       *time.Time      `gorm:"column:retried_at;type:timestamptz"`
}

func (f *FailedNotification) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
