package fallback

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
)

// Repository loads channel policies and per-user preferences.
type Repository interface {
	FindPolicy(ctx context.Context, tenantID, eventType string) (*models.ChannelPolicy, error)
	FindPreference(ctx context.Context, tenantID, userID string, channel enums.Channel) (*models.ChannelPreference, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a fallback repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) FindPolicy(ctx context.Context, tenantID, eventType string) (*models.ChannelPolicy, error) {
	var row models.ChannelPolicy
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND event_type = ?", tenantID, eventType).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) FindPreference(ctx context.Context, tenantID, userID string, channel enums.Channel) (*models.ChannelPreference, error) {
	var row models.ChannelPreference
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ? AND channel = ?", tenantID, userID, channel).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
