package repository // repository defines data access for seating assignments

import (
	"context"
	"database/sql"
	"time"
)

// Assignment seats one guest at one table. The full set of rows for an
// event is the saved seating chart; run_id and score record which
// optimizer run produced it and how well it scored. Score repeats on
// every row so the chart metadata survives without a separate runs table.
type Assignment struct {
	ID        uint64
	EventID   uint64 // FK -> events.id
	RunID     string // optimizer run that produced the chart
	GuestID   uint64 // FK -> guests.id
	TableID   uint64 // FK -> tables.id
	Score     float64
	CreatedAt time.Time // when the chart was applied
}

// AssignmentRepo provides methods to work with assignments in the database.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo constructs an AssignmentRepo with the given DB handle.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// ReplaceForEvent swaps the event's saved chart for a new one in a single
// transaction, so readers never observe a half-written chart.
func (r *AssignmentRepo) ReplaceForEvent(ctx context.Context, eventID uint64, runID string, score float64, rows []Assignment) error {
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

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE event_id = ?`, eventID); err != nil {
		return err
	}
	if len(rows) > 0 {
		query := `INSERT INTO assignments (event_id, run_id, guest_id, table_id, score) VALUES `
		args := make([]interface{}, 0, len(rows)*5)
		for i, a := range rows {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?)"
			args = append(args, eventID, runID, a.GuestID, a.TableID, score)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByEvent returns the saved chart of an event ordered by guest id.
func (r *AssignmentRepo) ListByEvent(ctx context.Context, eventID uint64) ([]Assignment, error) {
	const q = `SELECT id, event_id, run_id, guest_id, table_id, score, created_at
	           FROM assignments WHERE event_id = ? ORDER BY guest_id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.EventID, &a.RunID, &a.GuestID, &a.TableID, &a.Score, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteForEvent clears the saved chart of an event.
func (r *AssignmentRepo) DeleteForEvent(ctx context.Context, eventID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE event_id = ?`, eventID)
	return err
}
