package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/boat-boarding/internal/model"
)

// CheckinLogRepo provides append access to the checkin_logs table.  The
// table is append-only: every check-in, skip, group action and admin
// reset leaves exactly one row, and nothing ever updates or deletes one.
type CheckinLogRepo struct {
    db *sql.DB
}

// NewCheckinLogRepo returns a new CheckinLogRepo bound to the given database.
func NewCheckinLogRepo(db *sql.DB) *CheckinLogRepo { return &CheckinLogRepo{db: db} }

// AppendTx inserts one audit row within the provided transaction, so a
// rolled-back check-in leaves no trace and a committed one always does.
func (r *CheckinLogRepo) AppendTx(ctx context.Context, tx *sql.Tx, l *model.CheckinLog) error {
    const q = `INSERT INTO checkin_logs (booking_id, boat_number, confirmed_by, method, confirmed_at)
               VALUES (?, ?, ?, ?, ?)`
    when := l.ConfirmedAt
    if when.IsZero() {
        when = time.Now().UTC()
    }
    res, err := tx.ExecContext(ctx, q, l.BookingID, l.BoatNumber, l.ConfirmedBy, l.Method, when)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    l.ID = uint64(id)
    l.ConfirmedAt = when
    return nil
}

// Append inserts one audit row outside any transaction.  Used for
// decisions that do not touch booking state, such as skips.
func (r *CheckinLogRepo) Append(ctx context.Context, l *model.CheckinLog) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    if err := r.AppendTx(ctx, tx, l); err != nil {
        _ = tx.Rollback()
        return err
    }
    return tx.Commit()
}

// ListByBooking returns the audit trail for one booking, oldest first.
func (r *CheckinLogRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]*model.CheckinLog, error) {
    const q = `SELECT id, booking_id, boat_number, confirmed_by, method, confirmed_at
               FROM checkin_logs WHERE booking_id = ? ORDER BY confirmed_at, id`
    rows, err := r.db.QueryContext(ctx, q, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.CheckinLog
    for rows.Next() {
        var (
            l    model.CheckinLog
            boat sql.NullInt64
        )
        if err := rows.Scan(&l.ID, &l.BookingID, &boat, &l.ConfirmedBy, &l.Method, &l.ConfirmedAt); err != nil {
            return nil, err
        }
        if boat.Valid {
            n := uint32(boat.Int64)
            l.BoatNumber = &n
        }
        out = append(out, &l)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
