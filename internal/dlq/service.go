package dlq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/souvikree/notifly-backend/internal/audit"
	"github.com/souvikree/notifly-backend/pkg/db/models"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/outbox"
	"github.com/souvikree/notifly-backend/pkg/pagination"
)

// Publisher re-enqueues a message on a pub/sub topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg outbox.TierMessage, orderingKey string) error
}

// Auditor records admin actions. The audit recorder satisfies this.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service drives the admin DLQ operations: inspection, replay, and
// permanently parking a request.
type Service struct {
	repo      Repository
	publisher Publisher
	auditor   Auditor
	mainTopic string
	logg      *logger.Logger
}

// ServiceParams bundles the dependencies required to build a DLQ service.
type ServiceParams struct {
	Repo      Repository
	Publisher Publisher
	Auditor   Auditor
	MainTopic string
	Logger    *logger.Logger
}

// NewService constructs a DLQ service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dlq repository is required")
	}
	if params.Publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "publisher is required")
	}
	if params.MainTopic == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "main topic is required")
	}
	return &Service{
		repo:      params.Repo,
		publisher: params.Publisher,
		auditor:   params.Auditor,
		mainTopic: params.MainTopic,
		logg:      params.Logger,
	}, nil
}

// List returns failed notifications, newest first.
func (s *Service) List(ctx context.Context, params ListParams) ([]models.FailedNotification, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}

// RetryOne replays a parked request through the main topic, carrying the
// stored retry count so the replay logs fresh attempt rows instead of
// colliding with the original chain's. Unrecoverable requests are refused.
func (s *Service) RetryOne(ctx context.Context, actor string, requestID uuid.UUID) error {
	failed, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return err
	}
	if failed == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "failed notification not found")
	}
	if failed.IsUnrecoverable {
		return pkgerrors.New(pkgerrors.CodeRetryExhausted, "request is marked unrecoverable")
	}

	msg := outbox.NewTierMessage(outbox.TierMessage{
		TenantID:      failed.TenantID,
		RequestID:     failed.RequestID,
		EventType:     failed.EventType,
		UserID:        failed.UserID,
		Recipient:     failed.Recipient,
		Payload:       failed.Payload,
		RetryCount:    failed.RetryCount,
		OriginalTopic: s.mainTopic,
		CorrelationID: failed.CorrelationID,
	})
	if err := s.publisher.Publish(ctx, s.mainTopic, msg, failed.RequestID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "republish failed notification")
	}
	if err := s.repo.SetRetriedAt(ctx, requestID, time.Now().UTC()); err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "dlq.retry", failed.TenantID, requestID, map[string]any{
		"event_type": failed.EventType,
	})
	return nil
}

// RetryBatch replays every recoverable, not-yet-requeued row matching the
// filter. Each request is retried independently and failures are aggregated,
// so one broken entry does not abort the rest of the batch. It reports how
// many rows were attempted and how many were actually enqueued.
func (s *Service) RetryBatch(ctx context.Context, actor string, filter ListParams) (attempted, enqueued int, err error) {
	recoverable := false
	filter.Unrecoverable = &recoverable
	filter.IncludeRetried = false
	filter.Cursor = nil
	if filter.Limit <= 0 {
		filter.Limit = pagination.MaxLimit
	}

	var errs error
	for {
		rows, next, listErr := s.repo.List(ctx, filter)
		if listErr != nil {
			return attempted, enqueued, listErr
		}
		for _, row := range rows {
			attempted++
			if retryErr := s.RetryOne(ctx, actor, row.RequestID); retryErr != nil {
				errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDeliveryFailed, retryErr, row.RequestID.String()))
				continue
			}
			enqueued++
		}
		if next == nil {
			break
		}
		filter.Cursor = next
	}
	return attempted, enqueued, errs
}

// MarkUnrecoverable permanently parks a request. The transition is one way.
func (s *Service) MarkUnrecoverable(ctx context.Context, actor string, requestID uuid.UUID) error {
	failed, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return err
	}
	if failed == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "failed notification not found")
	}
	if failed.IsUnrecoverable {
		return nil
	}
	if err := s.repo.MarkUnrecoverable(ctx, requestID); err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "dlq.mark_unrecoverable", failed.TenantID, requestID, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, tenantID string, requestID uuid.UUID, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Actor:    actor,
		Action:   action,
		TenantID: tenantID,
		Subject:  requestID.String(),
		Detail:   detail,
	})
}
