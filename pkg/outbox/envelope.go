package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TierMessage is the wire payload carried through every notification topic.
// MessageID is regenerated on each publish so consumer-side dedup treats a
// republished retry as a new message, while RequestID stays stable end to end.
type TierMessage struct {
	MessageID     uuid.UUID       `json:"messageId"`
	TenantID      string          `json:"tenantId"`
	RequestID     uuid.UUID       `json:"requestId"`
	EventType     string          `json:"eventType"`
	UserID        string          `json:"userId"`
	Recipient     string          `json:"recipient"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retryCount"`
	OriginalTopic string          `json:"originalTopic"`
	CorrelationID string          `json:"correlationId"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewTierMessage stamps a fresh MessageID and timestamp on the envelope.
func NewTierMessage(base TierMessage) TierMessage {
	base.MessageID = uuid.New()
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now().UTC()
	}
	return base
}

// Decode parses a tier message from raw Pub/Sub data.
func Decode(data []byte) (TierMessage, error) {
	var msg TierMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return TierMessage{}, err
	}
	return msg, nil
}
