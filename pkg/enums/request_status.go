package enums

import "fmt"

// RequestStatus maps to the request_status enum in Postgres. ACCEPTED is set
// at ingestion and never changes on the request row itself; delivery outcomes
// are derived from the delivery_attempts log.
type RequestStatus string

const (
	RequestStatusAccepted  RequestStatus = "ACCEPTED"
	RequestStatusDelivered RequestStatus = "DELIVERED"
	RequestStatusFailed    RequestStatus = "FAILED"
	RequestStatusPending   RequestStatus = "PENDING"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusAccepted,
	RequestStatusDelivered,
	RequestStatusFailed,
	RequestStatusPending,
}

// IsValid reports whether the value matches the canonical request_status enum.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
