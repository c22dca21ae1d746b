package dlq

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/metrics"
	"github.com/souvikree/notifly-backend/pkg/outbox"
)

const exhaustedReason = "RETRY_EXHAUSTED"

// FailureWriter persists a terminal failure record. The merge is idempotent,
// so redelivered DLQ messages are safe to write again.
type FailureWriter interface {
	RecordFailure(ctx context.Context, failure *models.FailedNotification) error
}

// Consumer drains the dead letter subscription and parks each message as a
// failed notification that the admin API can inspect and replay.
type Consumer struct {
	subscription *pubsub.Subscriber
	writer       FailureWriter
	metrics      *metrics.DeliveryMetrics
	logg         *logger.Logger
}

// NewConsumer builds the DLQ consumer.
func NewConsumer(subscription *pubsub.Subscriber, writer FailureWriter, deliveryMetrics *metrics.DeliveryMetrics, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if writer == nil {
		return nil, fmt.Errorf("failure writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		writer:       writer,
		metrics:      deliveryMetrics,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.park(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (c *Consumer) park(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := outbox.Decode(msg.Data)
	if err != nil {
		// Undecodable messages can never be replayed; drop them.
		c.logg.Error(logCtx, "failed to decode dead letter message", err)
		return true
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"request_id":     envelope.RequestID.String(),
		"tenant_id":      envelope.TenantID,
		"correlation_id": envelope.CorrelationID,
	})

	// The envelope does not name the failing channel; the merge in
	// RecordFailure keeps whatever the delivery processor already wrote.
	failure := &models.FailedNotification{
		RequestID:       envelope.RequestID,
		TenantID:        envelope.TenantID,
		EventType:       envelope.EventType,
		UserID:          envelope.UserID,
		Recipient:       envelope.Recipient,
		Payload:         envelope.Payload,
		ErrorCode:       exhaustedReason,
		RetryCount:      envelope.RetryCount,
		IsUnrecoverable: false,
		CorrelationID:   envelope.CorrelationID,
	}
	if err := c.writer.RecordFailure(ctx, failure); err != nil {
		c.logg.Error(logCtx, "failed to park dead letter message", err)
		return false
	}

	c.metrics.IncDLQ(exhaustedReason)
	c.logg.Warn(logCtx, "notification parked in dead letter store")
	return true
}
