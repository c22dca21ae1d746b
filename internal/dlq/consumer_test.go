package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/metrics"
	"github.com/souvikree/notifly-backend/pkg/outbox"
)

type fakeFailureWriter struct {
	failures []models.FailedNotification
	err      error
}

func (f *fakeFailureWriter) RecordFailure(_ context.Context, failure *models.FailedNotification) error {
	if f.err != nil {
		return f.err
	}
	f.failures = append(f.failures, *failure)
	return nil
}

func newTestConsumer(writer FailureWriter) *Consumer {
	return &Consumer{
		writer:  writer,
		metrics: metrics.NewDeliveryMetrics(prometheus.NewRegistry()),
		logg:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func deadLetterMessage(t *testing.T, envelope outbox.TierMessage) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{ID: "m-1", Data: data}
}

func TestConsumer_ParksEnvelopeAsFailedNotification(t *testing.T) {
	writer := &fakeFailureWriter{}
	consumer := newTestConsumer(writer)

	envelope := outbox.TierMessage{
		MessageID:     uuid.New(),
		TenantID:      "tenant-a",
		RequestID:     uuid.New(),
		EventType:     "order.shipped",
		UserID:        "user-1",
		Recipient:     "user@example.com",
		Payload:       json.RawMessage(`{"order":"42"}`),
		RetryCount:    4,
		OriginalTopic: "notifications",
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC(),
	}

	if !consumer.park(context.Background(), deadLetterMessage(t, envelope)) {
		t.Fatal("expected park to ack")
	}
	if len(writer.failures) != 1 {
		t.Fatalf("expected one failure record, got %d", len(writer.failures))
	}
	parked := writer.failures[0]
	if parked.RequestID != envelope.RequestID {
		t.Fatal("failure record must reference the request")
	}
	if parked.ErrorCode != "RETRY_EXHAUSTED" {
		t.Fatalf("expected RETRY_EXHAUSTED, got %q", parked.ErrorCode)
	}
	if parked.RetryCount != 4 {
		t.Fatalf("expected retry count 4, got %d", parked.RetryCount)
	}
	if parked.IsUnrecoverable {
		t.Fatal("parked envelope stays recoverable")
	}
	if parked.Channel != "" {
		t.Fatalf("envelope carries no channel, got %q", parked.Channel)
	}
}

func TestConsumer_DropsUndecodableMessage(t *testing.T) {
	writer := &fakeFailureWriter{}
	consumer := newTestConsumer(writer)

	if !consumer.park(context.Background(), &pubsub.Message{ID: "m-2", Data: []byte("not json")}) {
		t.Fatal("undecodable message must be acked and dropped")
	}
	if len(writer.failures) != 0 {
		t.Fatal("undecodable message must not be recorded")
	}
}

func TestConsumer_NacksWhenWriteFails(t *testing.T) {
	writer := &fakeFailureWriter{err: fmt.Errorf("db down")}
	consumer := newTestConsumer(writer)

	envelope := outbox.TierMessage{
		MessageID: uuid.New(),
		TenantID:  "tenant-a",
		RequestID: uuid.New(),
		EventType: "order.shipped",
		Payload:   json.RawMessage(`{}`),
	}
	if consumer.park(context.Background(), deadLetterMessage(t, envelope)) {
		t.Fatal("a failed write must nack for redelivery")
	}
}
