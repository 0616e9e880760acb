package model

import "time"

// Loyalty tiers recognised by the venue.  The tier determines the
// daily table quota: standard customers may reserve two tables per
// calendar day, gold and platinum members three.
const (
	TierStandard = "STANDARD"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

// Customer is a guest identity merged across contact channels.  A
// customer record is created on first booking or loyalty enrollment
// and is never hard-deleted; privacy requests anonymise the contact
// fields instead.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name used for fuzzy identity matching.
//  Email     – primary email contact (lowercased on write).
//  Phone     – primary phone contact (digits only on write).
//  Tier      – loyalty tier (STANDARD, GOLD, PLATINUM).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Customer struct {
	ID        uint64    // customers.id
	Name      string    // customers.name
	Email     string    // customers.email
	Phone     string    // customers.phone
	Tier      string    // customers.tier
	CreatedAt time.Time // customers.created_at
	UpdatedAt time.Time // customers.updated_at
}

// VIP reports whether the customer's tier carries the raised table
// quota and the VIP booking-reference range.
func (c *Customer) VIP() bool {
	return c.Tier == TierGold || c.Tier == TierPlatinum
}

// HistoryEntry is one row of a customer's rolling booking history.
// It is an aggregate view over past bookings used by the limit
// enforcer for quota accounting and risk scoring.
type HistoryEntry struct {
	Day        time.Time // booking date (midnight UTC)
	TableCount int       // tables reserved under that booking
	Status     string    // terminal booking status (see booking.go)
}
