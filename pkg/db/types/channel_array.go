package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// ChannelArray stores an ordered channel list as a Postgres text array.
// Ordering is significant: the first entry is tried first during fallback.
type ChannelArray []enums.Channel

func (a *ChannelArray) Scan(src any) error {
	if src == nil {
		*a = ChannelArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("ChannelArray: unsupported Scan type %T", src)
	}
}

func (a ChannelArray) Value() (driver.Value, error) {
	// Postgres array literal: {EMAIL,SMS}
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, ch := range a {
		parts = append(parts, string(ch))
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func (a *ChannelArray) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "{}" || s == "" {
		*a = ChannelArray{}
		return nil
	}
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*a = ChannelArray{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]enums.Channel, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(strings.Trim(r, `"`))
		ch, err := enums.ParseChannel(r)
		if err != nil {
			return fmt.Errorf("ChannelArray: parse %q: %w", r, err)
		}
		out = append(out, ch)
	}
	*a = ChannelArray(out)
	return nil
}
