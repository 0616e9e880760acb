package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
)

// BookingRepo provides data access for bookings, their table
// assignments and the per-day limit aggregates.  The reservation
// itself is a single transaction: the conditional quota update and
// the table-slot inserts either all commit or none do, so two
// concurrent requests for the same quota or slot can never both
// succeed.  All timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ReserveParams carries everything needed to admit one booking.
// Quota is the effective quota for this transaction: the tier quota,
// or the raised limit when an admin override was approved.
type ReserveParams struct {
	CustomerID   uint64
	Day          time.Time
	ArrivalAt    time.Time
	PartySize    int
	TableIDs     []uint64
	DepositPence int
	PaymentRef   *string
	Quota        int
}

// Reserve admits a booking atomically.  The sequence inside one
// transaction:
//
//  1. conditional quota update on booking_limits - the write itself
//     re-checks tables_reserved + n <= quota, so the earlier advisory
//     check cannot be raced past;
//  2. insert the bookings row (PENDING, reference minted later);
//  3. insert one booking_tables row per table - the unique index on
//     (table_id, arrival_at) rejects double-booked slots.
//
// A lost race at any step rolls the whole transaction back and
// surfaces booking.ErrConflict; callers retry the admission sequence
// once.
func (r *BookingRepo) Reserve(ctx context.Context, p ReserveParams) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n := len(p.TableIDs)
	day := p.Day.UTC().Format("2006-01-02")

	// Seed the aggregate row if this is the customer's first booking
	// of the day.  The duplicate-key error just means another writer
	// seeded it first; the conditional update below settles the race.
	const seed = `INSERT INTO booking_limits (customer_id, day, tables_reserved) VALUES (?, ?, 0)`
	if _, err := tx.ExecContext(ctx, seed, p.CustomerID, day); err != nil && !isDuplicate(err) {
		return nil, err
	}
	const guard = `UPDATE booking_limits
	               SET tables_reserved = tables_reserved + ?
	               WHERE customer_id = ? AND day = ? AND tables_reserved + ? <= ?`
	result, err := tx.ExecContext(ctx, guard, n, p.CustomerID, day, n, p.Quota)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, booking.ErrConflict
	}

	const ins = `INSERT INTO bookings (customer_id, day, arrival_at, party_size, status, deposit_pence, payment_ref)
	             VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err = tx.ExecContext(ctx, ins,
		p.CustomerID, day, p.ArrivalAt.UTC(), p.PartySize, model.StatusPending, p.DepositPence, p.PaymentRef,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	for _, tableID := range p.TableIDs {
		const slot = `INSERT INTO booking_tables (booking_id, table_id, day, arrival_at) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, slot, id, tableID, day, p.ArrivalAt.UTC()); err != nil {
			if isDuplicate(err) {
				return nil, booking.ErrConflict
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, uint64(id))
}

// AssignReference writes the minted reference onto a pending booking
// and confirms it.  The unique index on bookings.reference owns the
// uniqueness guarantee; a duplicate surfaces as booking.ErrConflict
// so the caller redraws and retries.
func (r *BookingRepo) AssignReference(ctx context.Context, bookingID uint64, ref string) error {
	const q = `UPDATE bookings SET reference = ?, status = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, ref, model.StatusConfirmed, bookingID); err != nil {
		if isDuplicate(err) {
			return booking.ErrConflict
		}
		return err
	}
	return nil
}

// ReferenceExists reports whether a reference is already assigned to
// any booking.
func (r *BookingRepo) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM bookings WHERE reference = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, ref).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CheckInCodeExists reports whether a check-in code is already bound
// to any booking.
func (r *BookingRepo) CheckInCodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM check_in_codes WHERE code = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

const bookingColumns = `id, COALESCE(reference, ''), customer_id, day, arrival_at, party_size, status,
	deposit_pence, payment_ref, refund_eligible, refund_pence, created_at, updated_at`

func (r *BookingRepo) scanBooking(ctx context.Context, row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var paymentRef sql.NullString
	err := row.Scan(&b.ID, &b.Reference, &b.CustomerID, &b.Day, &b.ArrivalAt, &b.PartySize, &b.Status,
		&b.DepositPence, &paymentRef, &b.RefundEligible, &b.RefundPence, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		pr := paymentRef.String
		b.PaymentRef = &pr
	}
	rows, err := r.db.QueryContext(ctx, `SELECT table_id FROM booking_tables WHERE booking_id = ? ORDER BY table_id`, b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		b.TableIDs = append(b.TableIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID fetches a booking and its table assignments.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return r.scanBooking(ctx, r.db.QueryRowContext(ctx, q, id))
}

// GetByReference fetches a booking by its customer-facing reference.
func (r *BookingRepo) GetByReference(ctx context.Context, ref string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	return r.scanBooking(ctx, r.db.QueryRowContext(ctx, q, ref))
}

// ListByCustomer returns a customer's bookings, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = ? ORDER BY arrival_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		var paymentRef sql.NullString
		if err := rows.Scan(&b.ID, &b.Reference, &b.CustomerID, &b.Day, &b.ArrivalAt, &b.PartySize, &b.Status,
			&b.DepositPence, &paymentRef, &b.RefundEligible, &b.RefundPence, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if paymentRef.Valid {
			pr := paymentRef.String
			b.PaymentRef = &pr
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Cancel transitions a booking to CANCELLED, records the refund
// decision, releases the table slots and gives the tables back to the
// customer's daily quota.  The status transition is conditional, so a
// second cancellation of the same booking finds zero affected rows
// and fails with booking.ErrAlreadyCancelled - the recorded refund is
// never recomputed.  Cancelled bookings are retained for audit; only
// the booking_tables rows are removed to free the slots.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID uint64, refundEligible bool, refundPence int) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE bookings SET status = ?, refund_eligible = ?, refund_pence = ?
	           WHERE id = ? AND status <> ?`
	result, err := tx.ExecContext(ctx, q, model.StatusCancelled, refundEligible, refundPence, bookingID, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)`, bookingID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, booking.ErrAlreadyCancelled
	}

	// Count the released tables before dropping the slot rows so the
	// limit aggregate stays derived from actual assignments.
	var released int
	var day string
	var customerID uint64
	const info = `SELECT b.customer_id, DATE_FORMAT(b.day, '%Y-%m-%d'),
	                     (SELECT COUNT(*) FROM booking_tables bt WHERE bt.booking_id = b.id)
	              FROM bookings b WHERE b.id = ?`
	if err := tx.QueryRowContext(ctx, info, bookingID).Scan(&customerID, &day, &released); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_tables WHERE booking_id = ?`, bookingID); err != nil {
		return nil, err
	}
	const giveBack = `UPDATE booking_limits SET tables_reserved = GREATEST(tables_reserved - ?, 0)
	                  WHERE customer_id = ? AND day = ?`
	if _, err := tx.ExecContext(ctx, giveBack, released, customerID, day); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, bookingID)
}

// TablesReservedOn returns the per-day aggregate for a customer, 0
// when no row exists yet.
func (r *BookingRepo) TablesReservedOn(ctx context.Context, customerID uint64, day time.Time) (int, error) {
	const q = `SELECT tables_reserved FROM booking_limits WHERE customer_id = ? AND day = ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, customerID, day.UTC().Format("2006-01-02")).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// History returns the rolling booking history used for risk scoring:
// one entry per booking inside the range with its table count and
// terminal status.
func (r *BookingRepo) History(ctx context.Context, customerID uint64, from, to time.Time) ([]model.HistoryEntry, error) {
	const q = `SELECT b.day, b.status,
	                  (SELECT COUNT(*) FROM booking_tables bt WHERE bt.booking_id = b.id)
	           FROM bookings b
	           WHERE b.customer_id = ? AND b.day BETWEEN ? AND ?
	           ORDER BY b.day`
	rows, err := r.db.QueryContext(ctx, q, customerID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.Day, &h.Status, &h.TableCount); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
