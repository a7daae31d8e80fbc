package normalize

import (
	"strconv"
	"strings"
	"time"
)

var unitMs = map[byte]int64{
	's': 1000,
	'm': 60 * 1000,
	'h': 60 * 60 * 1000,
	'd': 24 * 60 * 60 * 1000,
}

// ParseRelativeTime converts a relative "time ago" string into absolute epoch
// milliseconds: an integer followed by s/m/h/d, with an optional "ago" tail
// ("5m ago" -> now - 300000). Unrecognized formats default to now.
func ParseRelativeTime(s string, now time.Time) int64 {
	nowMs := now.UnixMilli()

	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "ago")
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return nowMs
	}

	unit, ok := unitMs[s[len(s)-1]]
	if !ok {
		return nowMs
	}

	value, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || value < 0 {
		return nowMs
	}

	return nowMs - value*unit
}
