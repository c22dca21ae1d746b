package delivery

import (
	"testing"
	"time"
)

func TestTierFor(t *testing.T) {
	topo := testTopology()

	cases := []struct {
		retryCount int
		topic      string
		delay      time.Duration
	}{
		{0, "notifications", 0},
		{1, "notifications.retry.1s", time.Second},
		{2, "notifications.retry.5s", 5 * time.Second},
		{3, "notifications.retry.30s", 30 * time.Second},
		{9, "notifications.retry.30s", 30 * time.Second},
	}
	for _, tc := range cases {
		tier := topo.TierFor(tc.retryCount)
		if tier.Topic != tc.topic {
			t.Fatalf("retry count %d: expected topic %s, got %s", tc.retryCount, tc.topic, tier.Topic)
		}
		if tier.Delay != tc.delay {
			t.Fatalf("retry count %d: expected delay %s, got %s", tc.retryCount, tc.delay, tier.Delay)
		}
	}
}

func TestNextTopic(t *testing.T) {
	topo := testTopology()

	cases := []struct {
		retryCount  int
		maxAttempts int
		topic       string
		isRetry     bool
	}{
		{0, 3, "notifications.retry.1s", true},
		{1, 3, "notifications.retry.5s", true},
		{2, 3, "notifications.retry.30s", true},
		{3, 3, "notifications.dlq", false},
		{0, 0, "notifications.dlq", false},
		{5, 10, "notifications.dlq", false},
	}
	for _, tc := range cases {
		topic, isRetry := topo.NextTopic(tc.retryCount, tc.maxAttempts)
		if topic != tc.topic || isRetry != tc.isRetry {
			t.Fatalf("retry count %d max %d: expected (%s, %v), got (%s, %v)",
				tc.retryCount, tc.maxAttempts, tc.topic, tc.isRetry, topic, isRetry)
		}
	}
}
