package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// DeliveryAttempt is the append-only delivery log. The composite unique index
// makes attempt recording idempotent: redelivered messages insert the same
// (tenant, request, channel, tier) tuple and the duplicate is discarded.
type DeliveryAttempt struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     string              `gorm:"column:tenant_id;type:text;not null;uniqueIndex:idx_delivery_attempts_effect,priority:1"`
	RequestID    uuid.UUID           `gorm:"column:request_id;type:uuid;not null;uniqueIndex:idx_delivery_attempts_effect,priority:2"`
	Channel      enums.Channel       `gorm:"column:channel;type:text;not null;uniqueIndex:idx_delivery_attempts_effect,priority:3"`
	TierAttempt  int                 `gorm:"column:tier_attempt;not null;uniqueIndex:idx_delivery_attempts_effect,priority:4"`
	Status       enums.AttemptStatus `gorm:"column:status;type:text;not null"`
	ProviderName string              `gorm:"column:provider_name;type:text;not null"`
	ErrorMessage *string             `gorm:"column:error_message"`
	LatencyMS    int64               `gorm:"column:latency_ms;not null;default:0"`
	AttemptedAt  time.Time           `gorm:"column:attempted_at;type:timestamptz;autoCreateTime"`
}

func (a *DeliveryAttempt) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
