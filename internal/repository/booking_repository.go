package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/boat-boarding/internal/model"
    "github.com/iliyamo/boat-boarding/internal/utils"
)

// BookingRepo provides data access to the bookings table.  Bookings are
// created by the booking workflow and mutated exclusively by the check-in
// engine (setting per-leg boarded fields) and by the admin reset (clearing
// them).  All timestamp fields are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, event_id, ticket_ref, name, id_number, phone,
        male_dep, resort_dep, paid_amount, transfer_ref, ticket_type,
        arrival_time, departure_time, arrival_boat_boarded, departure_boat_boarded,
        checkin_time, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
    var (
        b           model.Booking
        phone       sql.NullString
        maleDep     sql.NullString
        resortDep   sql.NullString
        paidAmount  sql.NullInt64
        transferRef sql.NullString
        ticketType  sql.NullString
        arrTime     sql.NullTime
        depTime     sql.NullTime
        arrBoat     sql.NullInt64
        depBoat     sql.NullInt64
        checkinTime sql.NullTime
    )
    err := row.Scan(&b.ID, &b.EventID, &b.TicketRef, &b.Name, &b.IDNumber, &phone,
        &maleDep, &resortDep, &paidAmount, &transferRef, &ticketType,
        &arrTime, &depTime, &arrBoat, &depBoat,
        &checkinTime, &b.Status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if phone.Valid {
        v := phone.String
        b.Phone = &v
    }
    if maleDep.Valid {
        v := maleDep.String
        b.MaleDep = &v
    }
    if resortDep.Valid {
        v := resortDep.String
        b.ResortDep = &v
    }
    if paidAmount.Valid {
        v := paidAmount.Int64
        b.PaidAmount = &v
    }
    if transferRef.Valid {
        v := transferRef.String
        b.TransferRef = &v
    }
    if ticketType.Valid {
        v := ticketType.String
        b.TicketType = &v
    }
    if arrTime.Valid {
        t := arrTime.Time
        b.ArrivalTime = &t
    }
    if depTime.Valid {
        t := depTime.Time
        b.DepartureTime = &t
    }
    if arrBoat.Valid {
        n := uint32(arrBoat.Int64)
        b.ArrivalBoatBoarded = &n
    }
    if depBoat.Valid {
        n := uint32(depBoat.Int64)
        b.DepartureBoatBoarded = &n
    }
    if checkinTime.Valid {
        t := checkinTime.Time
        b.CheckinTime = &t
    }
    return &b, nil
}

func collectBookings(rows *sql.Rows) ([]*model.Booking, error) {
    defer rows.Close()
    var out []*model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// escapeLike neutralizes LIKE wildcards in user input so a passenger id
// containing % or _ matches literally.
func escapeLike(s string) string {
    s = strings.ReplaceAll(s, `\`, `\\`)
    s = strings.ReplaceAll(s, "%", `\%`)
    return strings.ReplaceAll(s, "_", `\_`)
}

// ResolveByIDNumber returns every booking in the event whose id number
// contains the query, case-insensitively.  All matches are returned so
// the caller can disambiguate instead of boarding the first hit.
func (r *BookingRepo) ResolveByIDNumber(ctx context.Context, eventID, query string) ([]*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE event_id = ? AND LOWER(id_number) LIKE ? ORDER BY id_number, id`
    pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
    rows, err := r.db.QueryContext(ctx, q, eventID, pattern)
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// ResolveByPhone returns every booking in the event sharing the exact
// phone number, the grouping key for group check-in.
func (r *BookingRepo) ResolveByPhone(ctx context.Context, eventID, phone string) ([]*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE event_id = ? AND phone = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, eventID, strings.TrimSpace(phone))
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// GetByID returns a single booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return b, nil
}

// GetByTicketRef returns a single booking by its ticket reference.
func (r *BookingRepo) GetByTicketRef(ctx context.Context, ref string) (*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ticket_ref = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, strings.TrimSpace(ref)))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return b, nil
}

// FindByIdentifier locates a booking by ticket reference first, then by
// exact id number.  Used by the admin reset, where staff may only know
// one of the two.
func (r *BookingRepo) FindByIdentifier(ctx context.Context, eventID, identifier string) (*model.Booking, error) {
    identifier = strings.TrimSpace(identifier)
    b, err := r.GetByTicketRef(ctx, identifier)
    if err == nil {
        return b, nil
    }
    if !errors.Is(err, ErrBookingNotFound) {
        return nil, err
    }
    q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE event_id = ? AND LOWER(id_number) = ? LIMIT 1`
    b, err = scanBooking(r.db.QueryRowContext(ctx, q, eventID, strings.ToLower(identifier)))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return b, nil
}

// BoardLegTx records that the booking boarded the given boat for the
// given leg.  The update is guarded by `{leg column} IS NULL`, so a
// concurrent double confirmation of the same booking loses cleanly with
// ErrAlreadyBoarded instead of overwriting the winner.  The booking
// becomes checked_in once either leg is boarded; checkin_time keeps the
// first boarding's timestamp.
func (r *BookingRepo) BoardLegTx(ctx context.Context, tx *sql.Tx, bookingID uint64, leg model.Leg, boatNumber uint32, now time.Time) error {
    col := leg.BoardedColumn()
    q := `UPDATE bookings SET ` + col + ` = ?, status = ?,
          checkin_time = COALESCE(checkin_time, ?), updated_at = CURRENT_TIMESTAMP
          WHERE id = ? AND ` + col + ` IS NULL`
    res, err := tx.ExecContext(ctx, q, boatNumber, model.BookingStatusCheckedIn, now, bookingID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists int
        if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, bookingID).Scan(&exists); err != nil {
            return err
        }
        if exists == 0 {
            return ErrBookingNotFound
        }
        return ErrAlreadyBoarded
    }
    return nil
}

// OutstandingByPhoneTx returns the bookings sharing the phone whose given
// leg has not been boarded yet.  The read locks the member rows (FOR
// UPDATE) so it reflects check-ins committed while this transaction
// waited on the boat lock, not the transaction's earlier snapshot.
func (r *BookingRepo) OutstandingByPhoneTx(ctx context.Context, tx *sql.Tx, eventID, phone string, leg model.Leg) ([]*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE event_id = ? AND phone = ? AND ` + leg.BoardedColumn() + ` IS NULL ORDER BY id FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, eventID, strings.TrimSpace(phone))
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// ResetTx clears both boarded-boat fields, the check-in time and returns
// the status to booked.  This is the only reversal of the boarded state
// in the system.
func (r *BookingRepo) ResetTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
    const q = `UPDATE bookings
               SET arrival_boat_boarded = NULL, departure_boat_boarded = NULL,
                   checkin_time = NULL, status = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
    res, err := tx.ExecContext(ctx, q, model.BookingStatusBooked, bookingID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrBookingNotFound
    }
    return nil
}

// Create inserts a new booking for the event, generating a ticket
// reference when none is supplied.  A booking already existing for the
// same event and id number is rejected with ErrDuplicateBooking, matching
// the booking desk's dedup rule.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    b.IDNumber = strings.ToUpper(strings.TrimSpace(b.IDNumber))
    var exists int
    const dup = `SELECT COUNT(*) FROM bookings WHERE event_id = ? AND id_number = ?`
    if err := r.db.QueryRowContext(ctx, dup, b.EventID, b.IDNumber).Scan(&exists); err != nil {
        return err
    }
    if exists > 0 {
        return ErrDuplicateBooking
    }
    if b.TicketRef == "" {
        b.TicketRef = utils.NewTicketRef(b.EventID)
    }
    if b.Status == "" {
        b.Status = model.BookingStatusBooked
    }
    const ins = `INSERT INTO bookings
        (event_id, ticket_ref, name, id_number, phone, male_dep, resort_dep,
         paid_amount, transfer_ref, ticket_type, arrival_time, departure_time, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, ins, b.EventID, b.TicketRef, b.Name, b.IDNumber,
        b.Phone, b.MaleDep, b.ResortDep, b.PaidAmount, b.TransferRef, b.TicketType,
        b.ArrivalTime, b.DepartureTime, b.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

// CreateBulkTx inserts multiple bookings in a single statement within the
// provided transaction.  All rows are inserted or none; the caller must
// commit or roll back.  Ticket references are generated for rows missing
// one.  Passing an empty slice has no effect and returns nil.
func (r *BookingRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, bookings []*model.Booking) error {
    if len(bookings) == 0 {
        return nil
    }
    query := `INSERT INTO bookings
        (event_id, ticket_ref, name, id_number, phone, male_dep, resort_dep,
         paid_amount, transfer_ref, ticket_type, arrival_time, departure_time, status) VALUES `
    args := make([]any, 0, len(bookings)*13)
    for i, b := range bookings {
        if b.TicketRef == "" {
            b.TicketRef = utils.NewTicketRef(b.EventID)
        }
        if b.Status == "" {
            b.Status = model.BookingStatusBooked
        }
        b.IDNumber = strings.ToUpper(strings.TrimSpace(b.IDNumber))
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
        args = append(args, b.EventID, b.TicketRef, b.Name, b.IDNumber, b.Phone,
            b.MaleDep, b.ResortDep, b.PaidAmount, b.TransferRef, b.TicketType,
            b.ArrivalTime, b.DepartureTime, b.Status)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// ListByBoat returns every booking boarded on the boat on either leg,
// ordered by name.  This is the read-only manifest used at departure.
func (r *BookingRepo) ListByBoat(ctx context.Context, boatNumber uint32) ([]*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE arrival_boat_boarded = ? OR departure_boat_boarded = ?
          ORDER BY name, id`
    rows, err := r.db.QueryContext(ctx, q, boatNumber, boatNumber)
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// ListByEvent returns all bookings for an event.  Used by the stats
// endpoint, which aggregates in memory the way the reporting flow did.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID string) ([]*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE event_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}
