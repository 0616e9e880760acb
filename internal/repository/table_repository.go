package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/brlvenue/table-reservation/internal/model"
)

// TableRepo provides availability queries over the venue floor.  A
// table is FREE for a slot when no booking_tables row holds it at
// that arrival time.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// GetByID fetches a venue table.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	const q = `SELECT id, label, capacity, premium, base_rate_pence, is_active, created_at
	           FROM venue_tables WHERE id = ?`
	var t model.Table
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Label, &t.Capacity, &t.Premium, &t.BaseRatePence, &t.IsActive, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Statuses reports FREE or BOOKED for each requested table at the
// given slot.  Tables absent from booking_tables for the slot are
// FREE.
func (r *TableRepo) Statuses(ctx context.Context, tableIDs []uint64, at time.Time) (map[uint64]string, error) {
	out := make(map[uint64]string, len(tableIDs))
	for _, id := range tableIDs {
		out[id] = model.TableFree
	}
	if len(tableIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tableIDs)), ",")
	q := `SELECT table_id FROM booking_tables WHERE arrival_at = ? AND table_id IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(tableIDs)+1)
	args = append(args, at.UTC())
	for _, id := range tableIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = model.TableBooked
	}
	return out, rows.Err()
}

// InCombinationWindow reports whether the table is held by an active
// combination booking covering the slot: a booking at that slot whose
// table assignments span more than one table including this one.
func (r *TableRepo) InCombinationWindow(ctx context.Context, tableID uint64, at time.Time) (bool, error) {
	const q = `SELECT EXISTS(
	             SELECT 1 FROM booking_tables bt
	             JOIN bookings b ON b.id = bt.booking_id
	             WHERE bt.table_id = ? AND bt.arrival_at = ?
	               AND b.status IN (?, ?, ?)
	               AND (SELECT COUNT(*) FROM booking_tables x WHERE x.booking_id = b.id) > 1
	           )`
	var active bool
	err := r.db.QueryRowContext(ctx, q, tableID, at.UTC(),
		model.StatusPending, model.StatusConfirmed, model.StatusArrived).Scan(&active)
	if err != nil {
		return false, err
	}
	return active, nil
}
