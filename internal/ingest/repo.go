package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
	"github.com/souvikree/notifly-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notification requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, request *models.NotificationRequest) error
	FindByRequestID(ctx context.Context, tenantID string, requestID uuid.UUID) (*models.NotificationRequest, error)
	FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*models.NotificationRequest, error)
	ListAttempts(ctx context.Context, tenantID string, requestID uuid.UUID) ([]models.DeliveryAttempt, error)
	FindFailed(ctx context.Context, tenantID string, requestID uuid.UUID) (*models.FailedNotification, error)
	ListRequests(ctx context.Context, params ListRequestsParams) ([]models.NotificationRequest, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an ingest repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListRequestsParams filters the tenant request listing.
type ListRequestsParams struct {
	TenantID  string
	EventType string
	Status    enums.RequestStatus
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Insert(ctx context.Context, request *models.NotificationRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) FindByRequestID(ctx context.Context, tenantID string, requestID uuid.UUID) (*models.NotificationRequest, error) {
	var row models.NotificationRequest
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*models.NotificationRequest, error) {
	var row models.NotificationRequest
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListAttempts(ctx context.Context, tenantID string, requestID uuid.UUID) ([]models.DeliveryAttempt, error) {
	var rows []models.DeliveryAttempt
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		Order("attempted_at ASC, tier_attempt ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindFailed(ctx context.Context, tenantID string, requestID uuid.UUID) (*models.FailedNotification, error) {
	var row models.FailedNotification
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListRequests(ctx context.Context, params ListRequestsParams) ([]models.NotificationRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.NotificationRequest{}).
		Where("tenant_id = ?", params.TenantID)
	if params.EventType != "" {
		query = query.Where("event_type = ?", params.EventType)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.NotificationRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}
