package delivery

import (
	"time"

	"github.com/souvikree/notifly-backend/pkg/config"
)

// Tier names a topic and the delay its consumer applies before processing.
// Retry spacing is encoded in the topology itself rather than computed: each
// retry republishes to the next tier topic, and that tier's consumer holds
// the message for the fixed delay.
type Tier struct {
	Topic        string
	Subscription string
	Delay        time.Duration
}

// Topology is the ordered set of delivery tiers plus the dead letter topic.
type Topology struct {
	Main    Tier
	Retries []Tier
	DLQ     Tier
}

// NewTopology builds the tier table from the Pub/Sub configuration.
func NewTopology(cfg config.PubSubConfig) Topology {
	return Topology{
		Main: Tier{Topic: cfg.MainTopic, Subscription: cfg.MainSubscription},
		Retries: []Tier{
			{Topic: cfg.RetryTopic1s, Subscription: cfg.RetrySubscription1s, Delay: time.Second},
			{Topic: cfg.RetryTopic5s, Subscription: cfg.RetrySubscription5s, Delay: 5 * time.Second},
			{Topic: cfg.RetryTopic30s, Subscription: cfg.RetrySubscription30s, Delay: 30 * time.Second},
		},
		DLQ: Tier{Topic: cfg.DLQTopic, Subscription: cfg.DLQSubscription},
	}
}

// TierFor returns the tier a message with the given retry count is consumed
// from. Retry count 0 is the main topic; counts beyond the retry tiers clamp
// to the slowest tier.
func (t Topology) TierFor(retryCount int) Tier {
	if retryCount <= 0 {
		return t.Main
	}
	if retryCount > len(t.Retries) {
		return t.Retries[len(t.Retries)-1]
	}
	return t.Retries[retryCount-1]
}

// NextTopic returns the topic a failed message should be republished to.
// Exhausted messages (retry count at or past maxAttempts or past the last
// tier) go to the dead letter topic.
func (t Topology) NextTopic(retryCount, maxAttempts int) (string, bool) {
	next := retryCount + 1
	if next > maxAttempts || next > len(t.Retries) {
		return t.DLQ.Topic, false
	}
	return t.Retries[next-1].Topic, true
}
