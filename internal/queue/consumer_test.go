package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestHandleMessage(t *testing.T) {
	chdir(t, t.TempDir())

	ev := CheckinConfirmedEvent{
		BookingID:   5,
		TicketRef:   "SUM-AAAA1111",
		Name:        "Aishath",
		BoatNumber:  9,
		Leg:         "departure",
		Method:      "departure-manual",
		ConfirmedBy: 2,
		ConfirmedAt: "2026-08-29T10:00:00Z",
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := handleMessage(body); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	data, err := os.ReadFile(filepath.Join("logs", "checkin.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"booking_id=5", "ticket_ref=SUM-AAAA1111", "boat=9", "leg=departure", "method=departure-manual"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	chdir(t, t.TempDir())
	if err := handleMessage([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}
