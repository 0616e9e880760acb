package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
)

// CheckInRepo manages check-in codes.  Each code is bound 1:1 to a
// booking and consumed at most once; the conditional update on
// used_at makes consumption race-safe between two door-staff
// terminals.
type CheckInRepo struct {
	db *sql.DB
}

// NewCheckInRepo returns a new CheckInRepo bound to the given database.
func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

// Create binds a freshly minted code to a booking.  A duplicate code
// surfaces as booking.ErrConflict so the caller redraws; a second
// code for the same booking is also a conflict (the 1:1 bond is a
// unique index on booking_id).
func (r *CheckInRepo) Create(ctx context.Context, bookingID uint64, code string) error {
	const q = `INSERT INTO check_in_codes (booking_id, code) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, q, bookingID, code); err != nil {
		if isDuplicate(err) {
			return booking.ErrConflict
		}
		return err
	}
	return nil
}

// GetByBooking fetches the code bound to a booking.
func (r *CheckInRepo) GetByBooking(ctx context.Context, bookingID uint64) (*model.CheckInCode, error) {
	const q = `SELECT id, booking_id, code, used_at, created_at FROM check_in_codes WHERE booking_id = ?`
	var c model.CheckInCode
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(&c.ID, &c.BookingID, &c.Code, &usedAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return &c, nil
}

// Consume marks a code used and transitions its booking from
// CONFIRMED to ARRIVED, both inside one transaction.  It returns the
// booking the code belongs to, ErrNotFound for an unknown code,
// booking.ErrConflict when the code was already consumed, and
// booking.ErrNotConfirmable when the booking is not in CONFIRMED
// state.  On any failure the transaction rolls back, so a code
// presented against a cancelled booking is rejected without being
// burned.
func (r *CheckInRepo) Consume(ctx context.Context, code string, at time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const burn = `UPDATE check_in_codes SET used_at = ? WHERE code = ? AND used_at IS NULL`
	result, err := tx.ExecContext(ctx, burn, at.UTC(), code)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM check_in_codes WHERE code = ?)`, code).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, booking.ErrConflict
	}

	var bookingID uint64
	if err := tx.QueryRowContext(ctx, `SELECT booking_id FROM check_in_codes WHERE code = ?`, code).Scan(&bookingID); err != nil {
		return 0, err
	}

	const arrive = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	result, err = tx.ExecContext(ctx, arrive, model.StatusArrived, bookingID, model.StatusConfirmed)
	if err != nil {
		return 0, err
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, booking.ErrNotConfirmable
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return bookingID, nil
}
