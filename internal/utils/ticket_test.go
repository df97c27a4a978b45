package utils

import (
	"regexp"
	"strings"
	"testing"
)

var ticketRefPattern = regexp.MustCompile(`^[A-Z0-9]{1,3}-[A-F0-9]{8}$`)

func TestNewTicketRef(t *testing.T) {
	cases := []struct {
		event  string
		prefix string
	}{
		{"summer-2026", "SUM"},
		{"EID", "EID"},
		{"x", "X"},
		{"", "EVT"},
		{"---", "EVT"},
	}
	for _, tc := range cases {
		ref := NewTicketRef(tc.event)
		if !ticketRefPattern.MatchString(ref) {
			t.Errorf("NewTicketRef(%q) = %q, does not match expected shape", tc.event, ref)
		}
		if !strings.HasPrefix(ref, tc.prefix+"-") {
			t.Errorf("NewTicketRef(%q) = %q, want prefix %q", tc.event, ref, tc.prefix)
		}
	}
}

func TestNewTicketRefVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := NewTicketRef("summer")
		if seen[ref] {
			t.Fatalf("duplicate reference %q after %d draws", ref, i)
		}
		seen[ref] = true
	}
}
