package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/boat-boarding/internal/model"
)

// BoatRepo provides data access to the boats table.  The boat row is the
// single exclusively-locked resource in the system: every capacity
// decision starts by locking it with GetForUpdateTx, and the occupancy
// count that gates the decision must be read in the same transaction.
type BoatRepo struct {
    db *sql.DB
}

// NewBoatRepo returns a new BoatRepo bound to the given database.
func NewBoatRepo(db *sql.DB) *BoatRepo { return &BoatRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BoatRepo) DB() *sql.DB { return r.db }

// GetByNumber returns a boat by its operator-assigned number without
// locking.  Use GetForUpdateTx for any read that gates a mutation.
func (r *BoatRepo) GetByNumber(ctx context.Context, boatNumber uint32) (*model.Boat, error) {
    const q = `SELECT id, boat_number, capacity, status, created_at, updated_at
               FROM boats WHERE boat_number = ?`
    var b model.Boat
    err := r.db.QueryRowContext(ctx, q, boatNumber).
        Scan(&b.ID, &b.BoatNumber, &b.Capacity, &b.Status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBoatNotFound
        }
        return nil, err
    }
    return &b, nil
}

// GetForUpdateTx acquires an exclusive row lock on the boat record for
// the duration of the enclosing transaction and returns its capacity and
// status.  Concurrent check-ins and capacity edits against the same boat
// serialize on this lock.  It returns ErrBoatNotFound when the boat does
// not exist and ErrBoatDeparted when the boat has already left.
func (r *BoatRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, boatNumber uint32) (*model.Boat, error) {
    const q = `SELECT id, boat_number, capacity, status, created_at, updated_at
               FROM boats WHERE boat_number = ? FOR UPDATE`
    var b model.Boat
    err := tx.QueryRowContext(ctx, q, boatNumber).
        Scan(&b.ID, &b.BoatNumber, &b.Capacity, &b.Status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBoatNotFound
        }
        return nil, err
    }
    if b.Status == model.BoatStatusDeparted {
        return nil, ErrBoatDeparted
    }
    return &b, nil
}

// OccupancyTx counts bookings whose boarded-boat column for the given leg
// equals boatNumber.  The count is a locking read: under REPEATABLE READ a
// plain SELECT would use the snapshot taken at the transaction's first
// statement, which predates the boat-lock wait, so a check-in committed by
// the lock holder would be invisible and the boat could oversell.  FOR
// UPDATE forces a current read of the committed rows.  The count is only
// race-free when the boat row is already locked in the same transaction.
func (r *BoatRepo) OccupancyTx(ctx context.Context, tx *sql.Tx, boatNumber uint32, leg model.Leg) (int, error) {
    q := `SELECT COUNT(*) FROM bookings WHERE ` + leg.BoardedColumn() + ` = ? FOR UPDATE`
    var n int
    if err := tx.QueryRowContext(ctx, q, boatNumber).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// ClaimSeatTx verifies a seat is free for the leg under the boat lock and
// returns the current occupancy.  It returns ErrBoatFull when the boat is
// at capacity; the caller's transaction should then roll back.
func (r *BoatRepo) ClaimSeatTx(ctx context.Context, tx *sql.Tx, boat *model.Boat, leg model.Leg) (int, error) {
    n, err := r.OccupancyTx(ctx, tx, boat.BoatNumber, leg)
    if err != nil {
        return 0, err
    }
    if n >= int(boat.Capacity) {
        return n, ErrBoatFull
    }
    return n, nil
}

// Occupancy is OccupancyTx without the lock, for read-only displays
// where a slightly stale count is acceptable.
func (r *BoatRepo) Occupancy(ctx context.Context, boatNumber uint32, leg model.Leg) (int, error) {
    q := `SELECT COUNT(*) FROM bookings WHERE ` + leg.BoardedColumn() + ` = ?`
    var n int
    if err := r.db.QueryRowContext(ctx, q, boatNumber).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// UpsertOpenTx creates the boat with the given capacity, or updates the
// capacity of an existing open boat.  A departed boat number is never
// reopened; the caller gets ErrBoatDeparted instead.  The row is read
// FOR UPDATE first so a concurrent check-in cannot interleave with the
// capacity change.
func (r *BoatRepo) UpsertOpenTx(ctx context.Context, tx *sql.Tx, boatNumber, capacity uint32) error {
    const sel = `SELECT status FROM boats WHERE boat_number = ? FOR UPDATE`
    var status string
    err := tx.QueryRowContext(ctx, sel, boatNumber).Scan(&status)
    switch {
    case errors.Is(err, sql.ErrNoRows):
        const ins = `INSERT INTO boats (boat_number, capacity, status) VALUES (?, ?, ?)`
        _, err = tx.ExecContext(ctx, ins, boatNumber, capacity, model.BoatStatusOpen)
        return err
    case err != nil:
        return err
    }
    if status == model.BoatStatusDeparted {
        return ErrBoatDeparted
    }
    const upd = `UPDATE boats SET capacity = ?, updated_at = CURRENT_TIMESTAMP WHERE boat_number = ?`
    _, err = tx.ExecContext(ctx, upd, capacity, boatNumber)
    return err
}

// UpdateCapacityTx changes the seat capacity of an open boat.  Staff use
// this mid-boarding when a different hull shows up, so the update runs
// under the same row lock discipline as check-ins.
func (r *BoatRepo) UpdateCapacityTx(ctx context.Context, tx *sql.Tx, boatNumber, capacity uint32) error {
    if _, err := r.GetForUpdateTx(ctx, tx, boatNumber); err != nil {
        return err
    }
    const q = `UPDATE boats SET capacity = ?, updated_at = CURRENT_TIMESTAMP WHERE boat_number = ?`
    _, err := tx.ExecContext(ctx, q, capacity, boatNumber)
    return err
}

// MarkDepartedTx flips the boat's status to departed.  The transition
// happens once and is never reversed.
func (r *BoatRepo) MarkDepartedTx(ctx context.Context, tx *sql.Tx, boatNumber uint32) error {
    if _, err := r.GetForUpdateTx(ctx, tx, boatNumber); err != nil {
        return err
    }
    const q = `UPDATE boats SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE boat_number = ?`
    _, err := tx.ExecContext(ctx, q, model.BoatStatusDeparted, boatNumber)
    return err
}
