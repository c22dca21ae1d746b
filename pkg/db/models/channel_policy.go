package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/souvikree/notifly-backend/pkg/db/types"
)

// ChannelPolicy overrides the default fallback order for a tenant and event
// type. An empty EventType applies tenant-wide; a specific EventType wins
// over the tenant-wide row.
type ChannelPolicy struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      string               `gorm:"column:tenant_id;type:text;not null;uniqueIndex:idx_channel_policies_scope,priority:1"`
	EventType     string               `gorm:"column:event_type;type:text;not null;default:'';uniqueIndex:idx_channel_policies_scope,priority:2"`
	FallbackOrder dbtypes.ChannelArray `gorm:"column:fallback_order;type:text[];not null"`
	CreatedAt     time.Time            `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;type:timestamptz;autoUpdateTime"`
}
