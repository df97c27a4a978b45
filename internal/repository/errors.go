// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. Every
// capacity violation and state conflict surfaces as one of these values;
// the core never swallows them.
package repository

import (
    "errors"
    "fmt"
)

// ErrBoatNotFound is returned when a boat lookup by number fails.
var ErrBoatNotFound = errors.New("boat not found")

// ErrBoatDeparted is returned when an operation targets a boat whose
// status is already "departed". The transition is irreversible, so the
// caller must pick another boat number.
var ErrBoatDeparted = errors.New("boat already departed")

// ErrBoatFull is returned when a single check-in would exceed the boat's
// seat capacity for the session leg. The transaction is rolled back and
// no booking state changes.
var ErrBoatFull = errors.New("boat is full")

// ErrNoActiveSession is returned when a check-in is attempted while no
// boarding session is open. Handlers should tell staff to start boarding
// first.
var ErrNoActiveSession = errors.New("no active boarding session")

// ErrLegMismatch is returned when the requested leg does not match the
// leg of the active boarding session.
var ErrLegMismatch = errors.New("leg does not match active session")

// ErrAlreadyBoarded is returned when a booking's requested leg has
// already been boarded. BOARDED is terminal per leg; only an admin reset
// reverses it.
var ErrAlreadyBoarded = errors.New("leg already boarded")

// ErrBookingNotFound is returned when a booking lookup fails.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateBooking is returned when a booking already exists for the
// same event and id number.
var ErrDuplicateBooking = errors.New("booking already exists")

// ErrNoActiveEvent is returned when no active event is configured.
var ErrNoActiveEvent = errors.New("no active event set")

// GroupCapacityError is returned when a group check-in would exceed the
// boat's capacity. The whole group is rejected; the caller may still
// check members in one by one until the boat fills. Needed is the number
// of outstanding seats the group requires, Available the seats left.
type GroupCapacityError struct {
    Needed    int
    Available int
}

func (e *GroupCapacityError) Error() string {
    return fmt.Sprintf("group needs %d seats, only %d available", e.Needed, e.Available)
}
