package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent records admin actions such as DLQ retries and unrecoverable marks.
type AuditEvent struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Actor     string          `gorm:"column:actor;type:text;not null"`
	Action    string          `gorm:"column:action;type:text;not null"`
	TenantID  string          `gorm:"column:tenant_id;type:text;not null;default:''"`
	Subject   string          `gorm:"column:subject;type:text;not null;default:''"`
	Detail    json.RawMessage `gorm:"column:detail;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
}

func (e *AuditEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
