package model

import "time"

// Booking status values.  A booking is created PENDING, becomes
// CONFIRMED once its reference and check-in code are minted, ARRIVED
// when door staff consume the check-in code, and CANCELLED or NO_SHOW
// as terminal outcomes.  Cancelled bookings are retained for audit.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusArrived   = "ARRIVED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// Booking records a table reservation for a single visit.  One
// booking may span several tables (or a table combination for large
// parties).  The unique reference is the customer-facing handle for
// the booking; table assignments and the check-in code are owned
// exclusively by the booking for the duration of the reservation
// window.
//
// Fields:
//  ID             – primary key identifier.
//  Reference      – unique reference in the form BRL-<year>-<5 digits>;
//                   empty until minted after the reservation commits.
//  CustomerID     – customer who made the booking.
//  Day            – calendar date of the visit (midnight UTC).
//  ArrivalAt      – expected arrival time on that date.
//  PartySize      – number of guests.
//  TableIDs       – tables assigned to the booking.
//  Status         – state of the booking (see constants above).
//  DepositPence   – deposit taken at booking time, in pence.
//  PaymentRef     – external payment gateway reference, if any.
//  RefundEligible – set on cancellation when a refund was due.
//  RefundPence    – refund amount computed at cancellation, in pence.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Booking struct {
	ID             uint64    // bookings.id
	Reference      string    // bookings.reference
	CustomerID     uint64    // bookings.customer_id
	Day            time.Time // bookings.day
	ArrivalAt      time.Time // bookings.arrival_at
	PartySize      int       // bookings.party_size
	TableIDs       []uint64  // booking_tables.table_id rows
	Status         string    // bookings.status
	DepositPence   int       // bookings.deposit_pence
	PaymentRef     *string   // bookings.payment_ref (nullable)
	RefundEligible bool      // bookings.refund_eligible
	RefundPence    int       // bookings.refund_pence
	CreatedAt      time.Time // bookings.created_at
	UpdatedAt      time.Time // bookings.updated_at
}

// BookingLimitRecord is the per-customer per-date aggregate of tables
// reserved.  It is maintained in the same transaction as the booking
// rows it is derived from, so it never drifts from the booking
// history.  After any accepted booking, TablesReserved must not
// exceed the quota for the customer's tier.
type BookingLimitRecord struct {
	CustomerID     uint64    // booking_limits.customer_id
	Day            time.Time // booking_limits.day
	TablesReserved int       // booking_limits.tables_reserved
}
