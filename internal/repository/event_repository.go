package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Event is one wedding being planned. Guests, tables, constraints and
// assignments all hang off an event, and every event belongs to the user
// who created it.
type Event struct {
	ID        uint64
	OwnerID   uint64 // FK -> users.id
	Name      string
	Venue     sql.NullString
	EventDate sql.NullTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrEventNotFound is returned when an event lookup yields no rows.
var ErrEventNotFound = errors.New("event not found")

// EventRepo provides CRUD access to events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Create inserts an event and reads the row back so timestamps are
// populated on the struct.
func (r *EventRepo) Create(ctx context.Context, e *Event) error {
	const qInsert = `INSERT INTO events (owner_id, name, venue, event_date) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, e.OwnerID, e.Name, e.Venue, e.EventDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)

	const qSelect = `SELECT id, owner_id, name, venue, event_date, created_at, updated_at
	                 FROM events WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, e.ID).
		Scan(&e.ID, &e.OwnerID, &e.Name, &e.Venue, &e.EventDate, &e.CreatedAt, &e.UpdatedAt)
}

// GetByIDAndOwner retrieves an event only if it belongs to the given
// owner, returning ErrEventNotFound otherwise so handlers do not leak
// which event IDs exist.
func (r *EventRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Event, error) {
	const q = `SELECT id, owner_id, name, venue, event_date, created_at, updated_at
	           FROM events WHERE id = ? AND owner_id = ?`
	var e Event
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&e.ID, &e.OwnerID, &e.Name, &e.Venue, &e.EventDate, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListByOwner returns all events of one owner, newest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*Event, error) {
	const q = `SELECT id, owner_id, name, venue, event_date, created_at, updated_at
	           FROM events WHERE owner_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := new(Event)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Venue, &e.EventDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateByIDAndOwner updates name, venue and date of an owned event.
// Returns sql.ErrNoRows when the event does not exist or is not owned by
// the caller.
func (r *EventRepo) UpdateByIDAndOwner(ctx context.Context, e *Event) error {
	const q = `UPDATE events
	           SET name = ?, venue = ?, event_date = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, e.Name, e.Venue, e.EventDate, e.ID, e.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByIDAndOwner removes an event together with its guests, tables,
// constraints and assignments in one transaction.
func (r *EventRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	for _, q := range []string{
		`DELETE FROM assignments WHERE event_id = ?`,
		`DELETE FROM constraints WHERE event_id = ?`,
		`DELETE FROM guests WHERE event_id = ?`,
		`DELETE FROM tables WHERE event_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
