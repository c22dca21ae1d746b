package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/souvikree/notifly-backend/pkg/metrics"
	"github.com/souvikree/notifly-backend/pkg/outbox"
)

const publishTimeout = 15 * time.Second

type publisherSource interface {
	Publisher(name string) *gcppubsub.Publisher
}

// TierPublisher publishes tier messages with a per-request ordering key.
type TierPublisher struct {
	source  publisherSource
	metrics *metrics.DeliveryMetrics
}

// NewTierPublisher wraps a Pub/Sub client for tier republishing.
func NewTierPublisher(source publisherSource, m *metrics.DeliveryMetrics) (*TierPublisher, error) {
	if source == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	return &TierPublisher{source: source, metrics: m}, nil
}

func (p *TierPublisher) Publish(ctx context.Context, topic string, msg outbox.TierMessage, orderingKey string) error {
	pub := p.source.Publisher(topic)
	if pub == nil {
		return fmt.Errorf("publisher not configured for topic %s", topic)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode tier message: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data:        data,
		OrderingKey: orderingKey,
		Attributes: map[string]string{
			"message_id":     msg.MessageID.String(),
			"request_id":     msg.RequestID.String(),
			"tenant_id":      msg.TenantID,
			"event_type":     msg.EventType,
			"retry_count":    fmt.Sprintf("%d", msg.RetryCount),
			"correlation_id": msg.CorrelationID,
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		// A failed ordered publish pauses the key until resumed.
		if orderingKey != "" {
			pub.ResumePublish(orderingKey)
		}
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.metrics.IncPublished(topic)
	return nil
}
