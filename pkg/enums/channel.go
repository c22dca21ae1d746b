package enums

import "fmt"

// Channel maps to the channel enum in Postgres.
type Channel string

const (
	ChannelEmail   Channel = "EMAIL"
	ChannelSMS     Channel = "SMS"
	ChannelPush    Channel = "PUSH"
	ChannelWebhook Channel = "WEBHOOK"
)

var validChannels = []Channel{
	ChannelEmail,
	ChannelSMS,
	ChannelPush,
	ChannelWebhook,
}

// DefaultFallbackOrder is the channel order attempted when a tenant has no
// channel policy configured for the event type.
var DefaultFallbackOrder = []Channel{
	ChannelEmail,
	ChannelSMS,
	ChannelPush,
	ChannelWebhook,
}

// IsValid reports whether the value matches the canonical channel enum.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into a Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
