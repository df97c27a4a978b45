package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/boat-boarding/internal/model"
)

// SessionRepo provides data access to the boarding_sessions table.  At
// most one session is active at a time across the whole system; the
// invariant is enforced inside StartTx by deactivating every active
// session before inserting the new one, all in the caller's transaction.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *SessionRepo) DB() *sql.DB { return r.db }

// StartTx ends any currently active boarding session and inserts a new
// active one for the given boat and leg.  The two statements share the
// caller's transaction, so a reader never observes two active sessions.
// It returns the new session with its generated id.
func (r *SessionRepo) StartTx(ctx context.Context, tx *sql.Tx, boatNumber uint32, leg model.Leg, startedBy uint64) (*model.BoardingSession, error) {
    now := time.Now().UTC()
    const end = `UPDATE boarding_sessions SET is_active = FALSE, ended_at = ? WHERE is_active = TRUE`
    if _, err := tx.ExecContext(ctx, end, now); err != nil {
        return nil, err
    }
    const ins = `INSERT INTO boarding_sessions (boat_number, leg, started_by, is_active, started_at)
                 VALUES (?, ?, ?, TRUE, ?)`
    res, err := tx.ExecContext(ctx, ins, boatNumber, leg.String(), startedBy, now)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return &model.BoardingSession{
        ID:         uint64(id),
        BoatNumber: boatNumber,
        Leg:        leg,
        StartedBy:  startedBy,
        IsActive:   true,
        StartedAt:  now,
    }, nil
}

// Active returns the currently active boarding session, or
// ErrNoActiveSession when no boat is boarding.
func (r *SessionRepo) Active(ctx context.Context) (*model.BoardingSession, error) {
    return scanSession(r.db.QueryRowContext(ctx, activeSessionQuery))
}

// ActiveTx is Active executed inside an open transaction.
func (r *SessionRepo) ActiveTx(ctx context.Context, tx *sql.Tx) (*model.BoardingSession, error) {
    return scanSession(tx.QueryRowContext(ctx, activeSessionQuery))
}

// ActiveForLegTx loads the active session and checks it boards the given
// leg.  It returns ErrNoActiveSession when nothing is boarding and
// ErrLegMismatch when the session boards the other leg; on mismatch the
// session is still returned so callers can report which leg is open.
func (r *SessionRepo) ActiveForLegTx(ctx context.Context, tx *sql.Tx, leg model.Leg) (*model.BoardingSession, error) {
    s, err := r.ActiveTx(ctx, tx)
    if err != nil {
        return nil, err
    }
    if s.Leg != leg {
        return s, ErrLegMismatch
    }
    return s, nil
}

const activeSessionQuery = `SELECT id, boat_number, leg, started_by, is_active, started_at, ended_at
                            FROM boarding_sessions WHERE is_active = TRUE LIMIT 1`

func scanSession(row *sql.Row) (*model.BoardingSession, error) {
    var (
        s       model.BoardingSession
        legStr  string
        endedAt sql.NullTime
    )
    err := row.Scan(&s.ID, &s.BoatNumber, &legStr, &s.StartedBy, &s.IsActive, &s.StartedAt, &endedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNoActiveSession
        }
        return nil, err
    }
    leg, err := model.ParseLeg(legStr)
    if err != nil {
        return nil, err
    }
    s.Leg = leg
    if endedAt.Valid {
        t := endedAt.Time
        s.EndedAt = &t
    }
    return &s, nil
}

// EndForBoatTx deactivates the active session for the given boat, if one
// exists.  Used by the departure workflow; ending a session that is not
// active is a no-op.
func (r *SessionRepo) EndForBoatTx(ctx context.Context, tx *sql.Tx, boatNumber uint32) error {
    const q = `UPDATE boarding_sessions SET is_active = FALSE, ended_at = ?
               WHERE boat_number = ? AND is_active = TRUE`
    _, err := tx.ExecContext(ctx, q, time.Now().UTC(), boatNumber)
    return err
}
