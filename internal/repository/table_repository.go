package repository // repository defines data access for tables

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Table represents one physical table at the venue. PosX and PosY keep the
// floor-plan position a client arranged; the optimizer ignores geometry.
// Accessible tables are the ones reachable by guests with mobility needs.
type Table struct {
	ID           uint64
	EventID      uint64 // FK -> events.id
	Name         string
	Capacity     int
	Shape        string // ROUND | RECTANGLE | SQUARE | OVAL
	PosX         float64
	PosY         float64
	IsAccessible bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrTableNotFound is returned when a table lookup yields no rows.
var ErrTableNotFound = errors.New("table not found")

// TableRepo provides methods to work with tables in the database.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{db: db}
}

// Create inserts a table and reads the row back to populate timestamps.
func (r *TableRepo) Create(ctx context.Context, t *Table) error {
	const qInsert = `INSERT INTO tables (event_id, name, capacity, shape, pos_x, pos_y, is_accessible)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		t.EventID, t.Name, t.Capacity, t.Shape, t.PosX, t.PosY, t.IsAccessible)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	const qSelect = `SELECT id, event_id, name, capacity, shape, pos_x, pos_y, is_accessible, created_at, updated_at
	                 FROM tables WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, t.ID).
		Scan(&t.ID, &t.EventID, &t.Name, &t.Capacity, &t.Shape, &t.PosX, &t.PosY,
			&t.IsAccessible, &t.CreatedAt, &t.UpdatedAt)
}

// GetByIDAndOwner retrieves a table while enforcing event ownership.
func (r *TableRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Table, error) {
	const q = `SELECT t.id, t.event_id, t.name, t.capacity, t.shape, t.pos_x, t.pos_y, t.is_accessible, t.created_at, t.updated_at
	           FROM tables t
	           JOIN events e ON e.id = t.event_id
	           WHERE t.id = ? AND e.owner_id = ?`
	var t Table
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&t.ID, &t.EventID, &t.Name, &t.Capacity, &t.Shape, &t.PosX, &t.PosY,
			&t.IsAccessible, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByEvent returns every table of an event ordered by id.
func (r *TableRepo) ListByEvent(ctx context.Context, eventID uint64) ([]Table, error) {
	const q = `SELECT id, event_id, name, capacity, shape, pos_x, pos_y, is_accessible, created_at, updated_at
	           FROM tables WHERE event_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.Capacity, &t.Shape, &t.PosX, &t.PosY,
			&t.IsAccessible, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalCapacity sums the seats across all tables of an event.
func (r *TableRepo) TotalCapacity(ctx context.Context, eventID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(capacity), 0) FROM tables WHERE event_id = ?`
	var total int
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// UpdateByIDAndOwner updates table fields when the table's event belongs
// to the owner. Returns sql.ErrNoRows when nothing matched.
func (r *TableRepo) UpdateByIDAndOwner(ctx context.Context, t *Table, ownerID uint64) error {
	const q = `UPDATE tables t
	           JOIN events e ON e.id = t.event_id
	           SET t.name = ?, t.capacity = ?, t.shape = ?, t.pos_x = ?, t.pos_y = ?, t.is_accessible = ?, t.updated_at = CURRENT_TIMESTAMP
	           WHERE t.id = ? AND e.owner_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		t.Name, t.Capacity, t.Shape, t.PosX, t.PosY, t.IsAccessible, t.ID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByIDAndOwner removes a table. It refuses with ErrConflict while
// a saved seating chart still seats guests there, and also clears any
// pin constraints that target the table.
func (r *TableRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
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

	var seated int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments WHERE table_id = ?`, id).Scan(&seated); err != nil {
		return err
	}
	if seated > 0 {
		return ErrConflict
	}

	const qDelete = `DELETE t FROM tables t
	                 JOIN events e ON e.id = t.event_id
	                 WHERE t.id = ? AND e.owner_id = ?`
	res, err := tx.ExecContext(ctx, qDelete, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTableNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM constraints WHERE table_id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
