package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewTicketRef builds a human-readable booking reference such as
// "SUM-3F9A21BC": the first three letters of the event name followed by
// a short random segment.  References are only unique with overwhelming
// probability; the bookings table carries a unique index as the backstop.
func NewTicketRef(event string) string {
	prefix := strings.ToUpper(strings.TrimSpace(event))
	prefix = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, prefix)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if prefix == "" {
		prefix = "EVT"
	}
	seg := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return prefix + "-" + seg
}
