package enums

import "fmt"

// AttemptStatus maps to the attempt_status enum in Postgres. One row is
// appended to delivery_attempts per channel attempt per tier; the status
// records how that single attempt ended.
type AttemptStatus string

const (
	AttemptStatusSent     AttemptStatus = "SENT"
	AttemptStatusFailed   AttemptStatus = "FAILED"
	AttemptStatusRetrying AttemptStatus = "RETRYING"
)

var validAttemptStatuses = []AttemptStatus{
	AttemptStatusSent,
	AttemptStatusFailed,
	AttemptStatusRetrying,
}

// IsValid reports whether the value matches the canonical attempt_status enum.
func (s AttemptStatus) IsValid() bool {
	for _, candidate := range validAttemptStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAttemptStatus converts raw input into an AttemptStatus.
func ParseAttemptStatus(value string) (AttemptStatus, error) {
	for _, candidate := range validAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attempt status %q", value)
}
