package model

import "time"

// CheckInCode is a short one-time code bound 1:1 to a booking.  Door
// staff use it to verify arrival without scanning a QR code.  The
// code is generated when the booking is confirmed and consumed at
// most once; UsedAt is nil until then.
type CheckInCode struct {
	ID        uint64     // check_in_codes.id
	BookingID uint64     // check_in_codes.booking_id
	Code      string     // check_in_codes.code (6 uppercase alphanumerics, unique)
	UsedAt    *time.Time // check_in_codes.used_at (nullable)
	CreatedAt time.Time  // check_in_codes.created_at
}
