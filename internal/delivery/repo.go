package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/souvikree/notifly-backend/pkg/db"
	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
)

// Repository persists delivery attempts and terminal failure records.
type Repository interface {
	RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) (bool, error)
	HasSentAttempt(ctx context.Context, tenantID string, requestID uuid.UUID, channel enums.Channel) (bool, error)
	FindFailed(ctx context.Context, requestID uuid.UUID) (*models.FailedNotification, error)
	RecordFailure(ctx context.Context, failure *models.FailedNotification) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a delivery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// RecordAttempt inserts an attempt row. A duplicate of the
// (tenant, request, channel, tier) tuple reports false with no error, which
// is how redelivered messages collapse into a single logged effect.
func (r *repositoryImpl) RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) (bool, error) {
	err := r.db.WithContext(ctx).Create(attempt).Error
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_delivery_attempts_effect") || dbpkg.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repositoryImpl) HasSentAttempt(ctx context.Context, tenantID string, requestID uuid.UUID, channel enums.Channel) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryAttempt{}).
		Where("tenant_id = ? AND request_id = ? AND channel = ? AND status = ?",
			tenantID, requestID, channel, enums.AttemptStatusSent).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) FindFailed(ctx context.Context, requestID uuid.UUID) (*models.FailedNotification, error) {
	var row models.FailedNotification
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RecordFailure inserts the failure record for a request, or merges into an
// existing one. IsUnrecoverable only ever transitions to true.
func (r *repositoryImpl) RecordFailure(ctx context.Context, failure *models.FailedNotification) error {
	existing, err := r.FindFailed(ctx, failure.RequestID)
	if err != nil {
		return err
	}
	if existing == nil {
		err := r.db.WithContext(ctx).Create(failure).Error
		if err != nil && dbpkg.IsUniqueViolation(err, "idx_failed_notifications_request_id") {
			existing, lookupErr := r.FindFailed(ctx, failure.RequestID)
			if lookupErr != nil {
				return lookupErr
			}
			if existing != nil {
				return r.mergeFailure(ctx, existing, failure)
			}
		}
		return err
	}
	return r.mergeFailure(ctx, existing, failure)
}

func (r *repositoryImpl) mergeFailure(ctx context.Context, existing, incoming *models.FailedNotification) error {
	updates := map[string]any{
		"failed_at": time.Now(),
	}
	// The DLQ consumer parks envelopes without channel detail, so empty
	// incoming fields never erase what the processor already recorded.
	if incoming.Channel != "" {
		updates["channel"] = incoming.Channel
	}
	if incoming.ErrorCode != "" {
		updates["error_code"] = incoming.ErrorCode
	}
	if incoming.ErrorMessage != "" {
		updates["error_message"] = incoming.ErrorMessage
	}
	if incoming.RetryCount > existing.RetryCount {
		updates["retry_count"] = incoming.RetryCount
	}
	if incoming.IsUnrecoverable {
		updates["is_unrecoverable"] = true
	}
	return r.db.WithContext(ctx).
		Model(&models.FailedNotification{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error
}
