package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// ChannelPreference records a per-user channel opt-out. A missing row means
// the channel is enabled.
type ChannelPreference struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  string        `gorm:"column:tenant_id;type:text;not null;uniqueIndex:idx_channel_preferences_scope,priority:1"`
	UserID    string        `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_channel_preferences_scope,priority:2"`
	Channel   enums.Channel `gorm:"column:channel;type:text;not null;uniqueIndex:idx_channel_preferences_scope,priority:3"`
	Enabled   bool          `gorm:"column:enabled;not null;default:true"`
	UpdatedAt time.Time     `gorm:"column:updated_at;type:timestamptz;autoUpdateTime"`
}
