package repository // repository defines data access for guests

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Guest represents one invitee of an event. GroupName tags members of the
// same family or party ("Smith family"); guests sharing a tag are treated
// as one unit by the optimizer. RSVPStatus tracks the invitation
// lifecycle; declined guests are left out of seating runs.
type Guest struct {
	ID              uint64
	EventID         uint64 // FK -> events.id
	Name            string
	GroupName       sql.NullString // family/party tag, NULL = ungrouped
	Side            string         // BRIDE | GROOM | BOTH
	Dietary         sql.NullString // free-text dietary restriction
	AgeGroup        string         // CHILD | TEEN | ADULT | SENIOR
	RSVPStatus      string         // PENDING | CONFIRMED | DECLINED
	NeedsAccessible bool
	Notes           sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ErrGuestNotFound is returned when a guest lookup yields no rows.
var ErrGuestNotFound = errors.New("guest not found")

// GuestRepo provides methods to work with guests in the database.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo constructs a GuestRepo with the given DB handle.
func NewGuestRepo(db *sql.DB) *GuestRepo {
	return &GuestRepo{db: db}
}

// Create inserts a guest and reads the row back to populate timestamps.
func (r *GuestRepo) Create(ctx context.Context, g *Guest) error {
	const qInsert = `INSERT INTO guests (event_id, name, group_name, side, dietary, age_group, rsvp_status, needs_accessible, notes)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		g.EventID, g.Name, g.GroupName, g.Side, g.Dietary, g.AgeGroup, g.RSVPStatus, g.NeedsAccessible, g.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)

	const qSelect = `SELECT id, event_id, name, group_name, side, dietary, age_group, rsvp_status, needs_accessible, notes, created_at, updated_at
	                 FROM guests WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, g.ID).
		Scan(&g.ID, &g.EventID, &g.Name, &g.GroupName, &g.Side, &g.Dietary, &g.AgeGroup,
			&g.RSVPStatus, &g.NeedsAccessible, &g.Notes, &g.CreatedAt, &g.UpdatedAt)
}

// CreateBulk inserts multiple guests in a single statement. IDs and
// timestamps are not read back; callers list afterwards if they need them.
func (r *GuestRepo) CreateBulk(ctx context.Context, guests []Guest) error {
	if len(guests) == 0 {
		return nil
	}
	query := `INSERT INTO guests (event_id, name, group_name, side, dietary, age_group, rsvp_status, needs_accessible, notes) VALUES `
	args := make([]interface{}, 0, len(guests)*9)
	for i, g := range guests {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, g.EventID, g.Name, g.GroupName, g.Side, g.Dietary, g.AgeGroup, g.RSVPStatus, g.NeedsAccessible, g.Notes)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByIDAndOwner retrieves a guest while enforcing event ownership.
func (r *GuestRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Guest, error) {
	const q = `SELECT g.id, g.event_id, g.name, g.group_name, g.side, g.dietary, g.age_group, g.rsvp_status, g.needs_accessible, g.notes, g.created_at, g.updated_at
	           FROM guests g
	           JOIN events e ON e.id = g.event_id
	           WHERE g.id = ? AND e.owner_id = ?`
	var g Guest
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&g.ID, &g.EventID, &g.Name, &g.GroupName, &g.Side, &g.Dietary, &g.AgeGroup,
			&g.RSVPStatus, &g.NeedsAccessible, &g.Notes, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListByEvent returns every guest of an event ordered by id.
func (r *GuestRepo) ListByEvent(ctx context.Context, eventID uint64) ([]Guest, error) {
	const q = `SELECT id, event_id, name, group_name, side, dietary, age_group, rsvp_status, needs_accessible, notes, created_at, updated_at
	           FROM guests WHERE event_id = ? ORDER BY id`
	return r.list(ctx, q, eventID)
}

// ListSeatableByEvent returns the guests a seating run should place:
// everyone who has not declined.
func (r *GuestRepo) ListSeatableByEvent(ctx context.Context, eventID uint64) ([]Guest, error) {
	const q = `SELECT id, event_id, name, group_name, side, dietary, age_group, rsvp_status, needs_accessible, notes, created_at, updated_at
	           FROM guests WHERE event_id = ? AND rsvp_status <> 'DECLINED' ORDER BY id`
	return r.list(ctx, q, eventID)
}

func (r *GuestRepo) list(ctx context.Context, q string, args ...interface{}) ([]Guest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Guest
	for rows.Next() {
		var g Guest
		if err := rows.Scan(&g.ID, &g.EventID, &g.Name, &g.GroupName, &g.Side, &g.Dietary, &g.AgeGroup,
			&g.RSVPStatus, &g.NeedsAccessible, &g.Notes, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByEventAndRSVP returns how many guests sit in each RSVP bucket.
// Buckets with zero guests are absent from the map.
func (r *GuestRepo) CountByEventAndRSVP(ctx context.Context, eventID uint64) (map[string]int, error) {
	const q = `SELECT rsvp_status, COUNT(*) FROM guests WHERE event_id = ? GROUP BY rsvp_status`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateByIDAndOwner updates guest fields when the guest's event belongs
// to the owner. Returns sql.ErrNoRows when nothing matched.
func (r *GuestRepo) UpdateByIDAndOwner(ctx context.Context, g *Guest, ownerID uint64) error {
	const q = `UPDATE guests g
	           JOIN events e ON e.id = g.event_id
	           SET g.name = ?, g.group_name = ?, g.side = ?, g.dietary = ?, g.age_group = ?, g.rsvp_status = ?, g.needs_accessible = ?, g.notes = ?, g.updated_at = CURRENT_TIMESTAMP
	           WHERE g.id = ? AND e.owner_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		g.Name, g.GroupName, g.Side, g.Dietary, g.AgeGroup, g.RSVPStatus, g.NeedsAccessible, g.Notes, g.ID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByIDAndOwner removes a guest together with the constraints and
// assignment rows that reference them, in one transaction.
func (r *GuestRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
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

	const qDelete = `DELETE g FROM guests g
	                 JOIN events e ON e.id = g.event_id
	                 WHERE g.id = ? AND e.owner_id = ?`
	res, err := tx.ExecContext(ctx, qDelete, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGuestNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM constraints WHERE guest_a = ? OR guest_b = ?`, id, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE guest_id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
