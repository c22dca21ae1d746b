package dlq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/pagination"
)

// Repository exposes failed notification persistence for the admin surface.
type Repository interface {
	List(ctx context.Context, params ListParams) ([]models.FailedNotification, *pagination.Cursor, error)
	FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.FailedNotification, error)
	SetRetriedAt(ctx context.Context, requestID uuid.UUID, at time.Time) error
	MarkUnrecoverable(ctx context.Context, requestID uuid.UUID) error
}

// ListParams filters the DLQ listing. Unrecoverable is a tri-state filter:
// nil matches every row. Rows that have been re-queued (retried_at set) are
// hidden unless IncludeRetried asks for them.
type ListParams struct {
	TenantID       string
	Channel        enums.Channel
	ErrorCode      string
	Search         string
	Unrecoverable  *bool
	IncludeRetried bool
	Limit          int
	Cursor         *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed DLQ repository.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) List(ctx context.Context, params ListParams) ([]models.FailedNotification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.FailedNotification{})
	if params.TenantID != "" {
		query = query.Where("tenant_id = ?", params.TenantID)
	}
	if params.Channel != "" {
		query = query.Where("channel = ?", params.Channel)
	}
	if params.ErrorCode != "" {
		query = query.Where("error_code = ?", params.ErrorCode)
	}
	if params.Search != "" {
		needle := "%" + params.Search + "%"
		query = query.Where("(event_type LIKE ? OR recipient LIKE ? OR error_message LIKE ?)", needle, needle, needle)
	}
	if params.Unrecoverable != nil {
		query = query.Where("is_unrecoverable = ?", *params.Unrecoverable)
	}
	if !params.IncludeRetried {
		query = query.Where("retried_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(failed_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.FailedNotification
	if err := query.Order("failed_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list failed notifications")
	}
	if len(rows) == limit {
		rows = rows[:limit-1]
		next := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: next.FailedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.FailedNotification, error) {
	var failed models.FailedNotification
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&failed).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find failed notification")
	}
	return &failed, nil
}

func (r *repositoryImpl) SetRetriedAt(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.FailedNotification{}).
		Where("request_id = ?", requestID).
		Update("retried_at", at).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set retried_at")
	}
	return nil
}

func (r *repositoryImpl) MarkUnrecoverable(ctx context.Context, requestID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.FailedNotification{}).
		Where("request_id = ?", requestID).
		Update("is_unrecoverable", true).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark unrecoverable")
	}
	return nil
}
