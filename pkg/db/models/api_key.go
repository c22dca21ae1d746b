package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey maps a SHA-256 key hash to a tenant. Raw keys are never stored.
type APIKey struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   string     `gorm:"column:tenant_id;type:text;not null;index:idx_api_keys_tenant_id"`
	KeyHash    string     `gorm:"column:key_hash;type:text;not null;uniqueIndex:idx_api_keys_key_hash"`
	Label      string     `gorm:"column:label;type:text;not null;default:''"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	RevokedAt  *time.Time `gorm:"column:revoked_at;type:timestamptz"`
	LastUsedAt *time.Time `gorm:"column:last_used_at;type:timestamptz"`
}
