package model

import "time"

// Booking statuses.  A booking starts as booked and becomes checked_in
// once at least one leg has been boarded; an admin reset returns it to
// booked.
const (
    BookingStatusBooked    = "booked"
    BookingStatusCheckedIn = "checked_in"
)

// Booking mirrors the `bookings` table.  The two *BoatBoarded fields are
// the authoritative per-leg boarding state: a leg counts toward a boat's
// occupancy exactly when its field holds that boat's number.  Many
// bookings may share a phone (the grouping key) but each keeps its own
// ticket reference and per-leg state.
//
// Fields:
//  ID                   – primary key identifier.
//  EventID              – event name scoping all lookups.
//  TicketRef            – short generated reference, unique.
//  Name                 – passenger name.
//  IDNumber             – identity document number used for check-in lookup.
//  Phone                – contact number shared by travel groups (nullable).
//  MaleDep              – scheduled Malé departure slot (nullable).
//  ResortDep            – scheduled resort departure slot (nullable).
//  PaidAmount           – amount paid in laari (nullable).
//  TransferRef          – bank transfer reference (nullable).
//  TicketType           – fare class label (nullable).
//  ArrivalTime          – scheduled arrival timestamp (nullable).
//  DepartureTime        – scheduled departure timestamp (nullable).
//  ArrivalBoatBoarded   – boat number boarded for the arrival leg (nullable).
//  DepartureBoatBoarded – boat number boarded for the departure leg (nullable).
//  CheckinTime          – first successful check-in timestamp (nullable).
//  Status               – "booked" or "checked_in".
type Booking struct {
    ID                   uint64     // bookings.id
    EventID              string     // bookings.event_id
    TicketRef            string     // bookings.ticket_ref
    Name                 string     // bookings.name
    IDNumber             string     // bookings.id_number
    Phone                *string    // bookings.phone (nullable)
    MaleDep              *string    // bookings.male_dep (nullable)
    ResortDep            *string    // bookings.resort_dep (nullable)
    PaidAmount           *int64     // bookings.paid_amount (nullable, laari)
    TransferRef          *string    // bookings.transfer_ref (nullable)
    TicketType           *string    // bookings.ticket_type (nullable)
    ArrivalTime          *time.Time // bookings.arrival_time (nullable)
    DepartureTime        *time.Time // bookings.departure_time (nullable)
    ArrivalBoatBoarded   *uint32    // bookings.arrival_boat_boarded (nullable)
    DepartureBoatBoarded *uint32    // bookings.departure_boat_boarded (nullable)
    CheckinTime          *time.Time // bookings.checkin_time (nullable)
    Status               string     // bookings.status
    CreatedAt            time.Time  // bookings.created_at
    UpdatedAt            time.Time  // bookings.updated_at
}

// BoardedFor reports the boat boarded for the given leg, or nil when the
// leg is still outstanding.
func (b *Booking) BoardedFor(leg Leg) *uint32 {
    if leg == LegDeparture {
        return b.DepartureBoatBoarded
    }
    return b.ArrivalBoatBoarded
}

// Outstanding reports whether the given leg has not been boarded yet.
func (b *Booking) Outstanding(leg Leg) bool { return b.BoardedFor(leg) == nil }
