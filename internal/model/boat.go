package model

import "time"

// Boat statuses.  A boat is open while it may accept boardings and
// becomes departed exactly once; the transition is never reversed.
const (
    BoatStatusOpen     = "open"
    BoatStatusDeparted = "departed"
)

// Boat mirrors the `boats` table.  Boat numbers are operator-assigned and
// unique; capacity is the hard seat limit enforced by the check-in engine.
//
// Fields:
//  ID         – primary key identifier.
//  BoatNumber – operator-assigned number, unique while the boat is active.
//  Capacity   – seat capacity, always > 0.
//  Status     – "open" or "departed".
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Boat struct {
    ID         uint64    // boats.id
    BoatNumber uint32    // boats.boat_number
    Capacity   uint32    // boats.capacity
    Status     string    // boats.status
    CreatedAt  time.Time // boats.created_at
    UpdatedAt  time.Time // boats.updated_at
}
