// Package queue defines message payloads exchanged over the message broker.
package queue

// CheckinConfirmedEvent is published after a check-in commits.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type CheckinConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	TicketRef   string `json:"ticket_ref"`
	Name        string `json:"name"`
	BoatNumber  uint32 `json:"boat_number"`
	Leg         string `json:"leg"`
	Method      string `json:"method"`
	ConfirmedBy uint64 `json:"confirmed_by"`
	ConfirmedAt string `json:"confirmed_at"`
}

// BoatDepartedEvent is published when a boat is marked departed.
type BoatDepartedEvent struct {
	BoatNumber uint32   `json:"boat_number"`
	Passengers int      `json:"passengers"`
	Names      []string `json:"names"`
	DepartedAt string   `json:"departed_at"`
}
