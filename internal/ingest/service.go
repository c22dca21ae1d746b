package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/souvikree/notifly-backend/pkg/db"
	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/outbox"
	"github.com/souvikree/notifly-backend/pkg/pagination"
)

// Service accepts notification requests and exposes their delivery state.
type Service interface {
	Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error)
	Status(ctx context.Context, tenantID string, requestID uuid.UUID) (*StatusResult, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// TxRunner abstracts the transactional boundary shared with the outbox write.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the ingestion service dependencies.
type ServiceParams struct {
	Repo      Repository
	Tx        TxRunner
	Outbox    *outbox.Service
	MainTopic string
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        TxRunner
	outbox    *outbox.Service
	mainTopic string
	logg      *logger.Logger
}

// SubmitParams carries a validated ingestion request.
type SubmitParams struct {
	TenantID       string
	IdempotencyKey string
	EventType      string
	UserID         string
	Recipient      string
	Payload        json.RawMessage
	CorrelationID  string
}

// SubmitResult reports the durable capture of a request. Replayed is true when
// an idempotency key matched a previously accepted request.
type SubmitResult struct {
	RequestID     uuid.UUID           `json:"requestId"`
	Status        enums.RequestStatus `json:"status"`
	CorrelationID string              `json:"correlationId"`
	Replayed      bool                `json:"-"`
}

// StatusResult combines the request row with its delivery history.
type StatusResult struct {
	Request  models.NotificationRequest `json:"notification"`
	Attempts []models.DeliveryAttempt   `json:"logs"`
	Failed   *models.FailedNotification `json:"failed,omitempty"`
}

// ListParams configures the tenant request listing.
type ListParams struct {
	TenantID  string
	EventType string
	Status    string
	Limit     int
	Cursor    string
}

// ListResult wraps returned requests and the cursor for the next page.
type ListResult struct {
	Items  []models.NotificationRequest `json:"items"`
	Cursor string                       `json:"cursor"`
}

// NewService wires ingestion dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if strings.TrimSpace(params.MainTopic) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "main topic required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		mainTopic: params.MainTopic,
		logg:      params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	if params.TenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	// The idempotency lookup runs before field validation so a replayed key
	// answers with the original request even if the resubmitted body is off.
	key := strings.TrimSpace(params.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, params.TenantID, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup")
		}
		if existing != nil {
			return s.replayResult(existing), nil
		}
	}

	if params.EventType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event type required")
	}
	if params.Recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if len(params.Payload) == 0 {
		params.Payload = json.RawMessage("{}")
	}

	correlationID := strings.TrimSpace(params.CorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	digest := sha256.Sum256(params.Payload)

	request := models.NotificationRequest{
		RequestID:     uuid.New(),
		TenantID:      params.TenantID,
		EventType:     params.EventType,
		UserID:        params.UserID,
		Recipient:     params.Recipient,
		Payload:       params.Payload,
		PayloadHash:   hex.EncodeToString(digest[:]),
		Status:        enums.RequestStatusAccepted,
		CorrelationID: correlationID,
	}
	if key != "" {
		request.IdempotencyKey = &key
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, &request); err != nil {
			return err
		}
		msg := outbox.TierMessage{
			TenantID:      request.TenantID,
			RequestID:     request.RequestID,
			EventType:     request.EventType,
			UserID:        request.UserID,
			Recipient:     request.Recipient,
			Payload:       request.Payload,
			RetryCount:    0,
			OriginalTopic: s.mainTopic,
			CorrelationID: correlationID,
		}
		return s.outbox.Emit(ctx, tx, s.mainTopic, msg)
	})
	if err != nil {
		// Concurrent submits with the same key race on the unique index. The
		// loser re-reads the winner's row and replays it.
		if key != "" && dbpkg.IsUniqueViolation(err, "idx_notification_requests_idempotency") {
			existing, lookupErr := s.repo.FindByIdempotencyKey(ctx, params.TenantID, key)
			if lookupErr == nil && existing != nil {
				return s.replayResult(existing), nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeIdempotent, err, "idempotency key conflict")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture notification request")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"request_id": request.RequestID.String(),
			"tenant_id":  request.TenantID,
			"event_type": request.EventType,
		})
		s.logg.Info(logCtx, "notification request accepted")
	}

	return &SubmitResult{
		RequestID:     request.RequestID,
		Status:        request.Status,
		CorrelationID: correlationID,
	}, nil
}

func (s *service) replayResult(existing *models.NotificationRequest) *SubmitResult {
	return &SubmitResult{
		RequestID:     existing.RequestID,
		Status:        existing.Status,
		CorrelationID: existing.CorrelationID,
		Replayed:      true,
	}
}

func (s *service) Status(ctx context.Context, tenantID string, requestID uuid.UUID) (*StatusResult, error) {
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	request, err := s.repo.FindByRequestID(ctx, tenantID, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification request")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification request not found")
	}

	attempts, err := s.repo.ListAttempts(ctx, tenantID, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery attempts")
	}

	failed, err := s.repo.FindFailed(ctx, tenantID, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load failure record")
	}

	request.Status = deriveStatus(request.Status, attempts, failed)

	return &StatusResult{
		Request:  *request,
		Attempts: attempts,
		Failed:   failed,
	}, nil
}

// deriveStatus projects the delivery log onto a single request status. The
// stored row keeps ACCEPTED; the read path reports what actually happened.
func deriveStatus(current enums.RequestStatus, attempts []models.DeliveryAttempt, failed *models.FailedNotification) enums.RequestStatus {
	for _, attempt := range attempts {
		if attempt.Status == enums.AttemptStatusSent {
			return enums.RequestStatusDelivered
		}
	}
	if failed != nil {
		return enums.RequestStatusFailed
	}
	if len(attempts) > 0 {
		return enums.RequestStatusPending
	}
	return current
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.TenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	query := ListRequestsParams{
		TenantID:  params.TenantID,
		EventType: params.EventType,
		Limit:     params.Limit,
	}
	if params.Status != "" {
		status, err := enums.ParseRequestStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListRequests(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notification requests")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{Items: rows, Cursor: cursor}, nil
}
