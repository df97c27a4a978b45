package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
)

// EventRepo reads and writes the config table, which holds the
// `active_event` key scoping every booking lookup.  Events themselves
// are provisioned elsewhere; this core only needs to know which one is
// live.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const activeEventKey = "active_event"

// ActiveEvent returns the name of the active event, or ErrNoActiveEvent
// when none has been set.
func (r *EventRepo) ActiveEvent(ctx context.Context) (string, error) {
    const q = `SELECT v FROM config WHERE k = ?`
    var v sql.NullString
    err := r.db.QueryRowContext(ctx, q, activeEventKey).Scan(&v)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return "", ErrNoActiveEvent
        }
        return "", err
    }
    if !v.Valid || strings.TrimSpace(v.String) == "" {
        return "", ErrNoActiveEvent
    }
    return v.String, nil
}

// SetActiveEvent upserts the active event name.
func (r *EventRepo) SetActiveEvent(ctx context.Context, name string) error {
    const q = `INSERT INTO config (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`
    _, err := r.db.ExecContext(ctx, q, activeEventKey, strings.TrimSpace(name))
    return err
}
