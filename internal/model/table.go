package model

import "time"

// Table availability states as reported by the availability store for
// a given slot.
const (
	TableFree   = "FREE"
	TableBooked = "BOOKED"
)

// Table describes a physical table on the venue floor.  Tables are
// immutable configuration apart from the active flag; premium tables
// (window, mezzanine) attract a pricing multiplier when booked as
// part of a combination.
//
// Fields:
//  ID            – primary key identifier.
//  Label         – floor label printed on the table ("T15").
//  Capacity      – number of covers the table seats.
//  Premium       – whether the table is in the premium subset.
//  BaseRatePence – per-table base price in pence.
//  IsActive      – whether the table is bookable.
//  CreatedAt     – creation timestamp.
type Table struct {
	ID            uint64    // venue_tables.id
	Label         string    // venue_tables.label
	Capacity      int       // venue_tables.capacity
	Premium       bool      // venue_tables.premium
	BaseRatePence int       // venue_tables.base_rate_pence
	IsActive      bool      // venue_tables.is_active
	CreatedAt     time.Time // venue_tables.created_at
}
