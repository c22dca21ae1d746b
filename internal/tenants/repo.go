package tenants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
)

// Repository exposes API key persistence.
type Repository interface {
	FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Insert(ctx context.Context, key *models.APIKey) error
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed API key repository.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) FindByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).
		Where("key_hash = ?", keyHash).
		First(&key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find api key")
	}
	return &key, nil
}

func (r *repositoryImpl) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch api key")
	}
	return nil
}

func (r *repositoryImpl) Insert(ctx context.Context, key *models.APIKey) error {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert api key")
	}
	return nil
}

func (r *repositoryImpl) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": false, "revoked_at": at}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke api key")
	}
	return nil
}
