package model

import "time"

// Check-in log method tags.  Single confirmations are tagged with the leg
// ("arrival-manual"), group confirmations with "group-arrival" /
// "group-departure".  Skips and admin resets get their own tags so the
// audit trail records every staff decision, not only boardings.
const (
    MethodSkip       = "skip"
    MethodAdminReset = "admin-reset"
)

// ManualMethod returns the method tag for a single manual check-in on the
// given leg.
func ManualMethod(leg Leg) string { return leg.String() + "-manual" }

// GroupMethod returns the method tag for a group check-in on the given leg.
func GroupMethod(leg Leg) string { return "group-" + leg.String() }

// CheckinLog mirrors the append-only `checkin_logs` table.  Rows are never
// updated or deleted.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – booking the decision applied to.
//  BoatNumber  – boat involved, nil for decisions without one (e.g. reset
//                of a never-boarded booking).
//  ConfirmedBy – staff user id that made the decision.
//  Method      – decision tag (see constants above).
//  ConfirmedAt – when the decision was recorded.
type CheckinLog struct {
    ID          uint64    // checkin_logs.id
    BookingID   uint64    // checkin_logs.booking_id
    BoatNumber  *uint32   // checkin_logs.boat_number (nullable)
    ConfirmedBy uint64    // checkin_logs.confirmed_by
    Method      string    // checkin_logs.method
    ConfirmedAt time.Time // checkin_logs.confirmed_at
}
