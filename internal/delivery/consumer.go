package delivery

import (
	"context"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/outbox"
	"github.com/souvikree/notifly-backend/pkg/outbox/idempotency"
)

// Consumer drains one tier subscription. Retry tier consumers hold each
// message for the tier delay before processing, which is what turns the
// topic topology into spaced retries.
type Consumer struct {
	name         string
	subscription *pubsub.Subscriber
	delay        time.Duration
	processor    *Processor
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a tier consumer.
func NewConsumer(name string, subscription *pubsub.Subscriber, delay time.Duration, processor *Processor, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if name == "" {
		return nil, fmt.Errorf("consumer name required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		name:         name,
		subscription: subscription,
		delay:        delay,
		processor:    processor,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"consumer":   c.name,
		"message_id": msg.ID,
	})

	envelope, err := outbox.Decode(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode tier message", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"request_id":  envelope.RequestID.String(),
		"tenant_id":   envelope.TenantID,
		"retry_count": envelope.RetryCount,
	})

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return processResult{nack: true}
		}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, c.name, envelope.MessageID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "message already processed")
		return processResult{ack: true}
	}

	if err := c.processor.Process(ctx, envelope); err != nil {
		c.logg.Error(logCtx, "delivery processing failed", err)
		_ = c.idempotency.Delete(ctx, c.name, envelope.MessageID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}
