package model

import "time"

// BoardingSession declares that a specific boat, for a specific leg, is
// currently accepting check-ins.  At most one session is active at a time
// across the whole system; starting a new session transactionally ends
// the previous one.
//
// Fields:
//  ID         – primary key identifier.
//  BoatNumber – boat currently boarding.
//  Leg        – which travel leg this session boards.
//  StartedBy  – staff user id that opened the session.
//  IsActive   – whether this is the current session.
//  StartedAt  – when boarding opened.
//  EndedAt    – when boarding closed (nil while active).
type BoardingSession struct {
    ID         uint64     // boarding_sessions.id
    BoatNumber uint32     // boarding_sessions.boat_number
    Leg        Leg        // boarding_sessions.leg
    StartedBy  uint64     // boarding_sessions.started_by
    IsActive   bool       // boarding_sessions.is_active
    StartedAt  time.Time  // boarding_sessions.started_at
    EndedAt    *time.Time // boarding_sessions.ended_at (nullable)
}
