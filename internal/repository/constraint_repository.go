package repository // repository defines data access for seating constraints

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Constraint represents one seating rule of an event. Kind decides which
// of the optional columns apply: TOGETHER and APART pair GuestA with
// GuestB, AT_TABLE pins GuestA to TableID, ACCESSIBLE involves GuestA
// alone. Hard rules must hold, soft ones are weighted preferences.
type Constraint struct {
	ID        uint64
	EventID   uint64 // FK -> events.id
	Kind      string // TOGETHER | APART | AT_TABLE | ACCESSIBLE
	GuestA    uint64 // FK -> guests.id
	GuestB    sql.NullInt64
	TableID   sql.NullInt64
	IsHard    bool
	Weight    float64
	CreatedAt time.Time
}

// ErrConstraintNotFound is returned when a constraint lookup yields no rows.
var ErrConstraintNotFound = errors.New("constraint not found")

// ConstraintRepo provides methods to work with constraints in the database.
type ConstraintRepo struct {
	db *sql.DB
}

// NewConstraintRepo constructs a ConstraintRepo with the given DB handle.
func NewConstraintRepo(db *sql.DB) *ConstraintRepo {
	return &ConstraintRepo{db: db}
}

// Create inserts a constraint and reads the row back for the timestamp.
func (r *ConstraintRepo) Create(ctx context.Context, c *Constraint) error {
	const qInsert = `INSERT INTO constraints (event_id, kind, guest_a, guest_b, table_id, is_hard, weight)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		c.EventID, c.Kind, c.GuestA, c.GuestB, c.TableID, c.IsHard, c.Weight)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	const qSelect = `SELECT id, event_id, kind, guest_a, guest_b, table_id, is_hard, weight, created_at
	                 FROM constraints WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, c.ID).
		Scan(&c.ID, &c.EventID, &c.Kind, &c.GuestA, &c.GuestB, &c.TableID, &c.IsHard, &c.Weight, &c.CreatedAt)
}

// GetByIDAndOwner retrieves a constraint while enforcing event ownership.
func (r *ConstraintRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Constraint, error) {
	const q = `SELECT c.id, c.event_id, c.kind, c.guest_a, c.guest_b, c.table_id, c.is_hard, c.weight, c.created_at
	           FROM constraints c
	           JOIN events e ON e.id = c.event_id
	           WHERE c.id = ? AND e.owner_id = ?`
	var c Constraint
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&c.ID, &c.EventID, &c.Kind, &c.GuestA, &c.GuestB, &c.TableID, &c.IsHard, &c.Weight, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConstraintNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByEvent returns every constraint of an event ordered by id.
func (r *ConstraintRepo) ListByEvent(ctx context.Context, eventID uint64) ([]Constraint, error) {
	const q = `SELECT id, event_id, kind, guest_a, guest_b, table_id, is_hard, weight, created_at
	           FROM constraints WHERE event_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Constraint
	for rows.Next() {
		var c Constraint
		if err := rows.Scan(&c.ID, &c.EventID, &c.Kind, &c.GuestA, &c.GuestB, &c.TableID, &c.IsHard, &c.Weight, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDAndOwner removes a constraint when its event belongs to the
// owner. Returns ErrConstraintNotFound when nothing matched.
func (r *ConstraintRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	const q = `DELETE c FROM constraints c
	           JOIN events e ON e.id = c.event_id
	           WHERE c.id = ? AND e.owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConstraintNotFound
	}
	return nil
}
