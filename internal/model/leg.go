package model

import (
    "fmt"
    "strings"
)

// Leg identifies one direction of travel.  Every booking tracks its two
// legs independently: which boat carried the passenger out to the island
// and which boat carried them back.  The type is a closed enumeration so
// that an invalid leg string can never reach a capacity decision.
type Leg string

const (
    LegArrival   Leg = "arrival"
    LegDeparture Leg = "departure"
)

// ParseLeg converts user input into a Leg.  Matching is case-insensitive
// and surrounding whitespace is ignored.  Anything other than the two
// known legs is rejected.
func ParseLeg(s string) (Leg, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case string(LegArrival):
        return LegArrival, nil
    case string(LegDeparture):
        return LegDeparture, nil
    }
    return "", fmt.Errorf("invalid leg %q", s)
}

// BoardedColumn returns the bookings column that records the boat boarded
// for this leg.  Repository queries interpolate the column name directly,
// so the mapping must stay closed over the two enum values.
func (l Leg) BoardedColumn() string {
    if l == LegDeparture {
        return "departure_boat_boarded"
    }
    return "arrival_boat_boarded"
}

// Other returns the opposite leg.
func (l Leg) Other() Leg {
    if l == LegArrival {
        return LegDeparture
    }
    return LegArrival
}

func (l Leg) String() string { return string(l) }
