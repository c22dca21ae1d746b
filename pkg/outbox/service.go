package outbox

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores a tier message in the outbox within the caller's transaction.
// The row and whatever business writes share the transaction commit, so a
// captured request always has exactly one pending publish.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, topic string, msg TierMessage) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	envelope := NewTierMessage(msg)
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		RequestID: envelope.RequestID,
		TenantID:  envelope.TenantID,
		Topic:     topic,
		Payload:   json.RawMessage(payloadJSON),
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		fields := map[string]any{
			"message_id": envelope.MessageID.String(),
			"request_id": envelope.RequestID.String(),
			"tenant_id":  envelope.TenantID,
			"topic":      topic,
		}
		logCtx := s.logg.WithFields(ctx, fields)
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}
