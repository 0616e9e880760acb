package model

// TableCombination is a named set of two or more physically adjacent
// tables that can be booked and priced as one unit for large parties.
// Combinations are immutable configuration loaded at startup, never
// created per booking.  While a combination is in use, its member
// tables cannot be booked singly.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – operator-facing name ("window pair").
//  Tables       – member tables, in floor order.
//  CapacityMin  – smallest party the combination is offered to.
//  CapacityMax  – largest party the combination can seat.
//  FeePence     – flat combination fee in pence, on top of the
//                 per-table base rates.
//  SetupMinutes – staff time needed to join and dress the tables.
type TableCombination struct {
	ID           uint64  // table_combinations.id
	Name         string  // table_combinations.name
	Tables       []Table // combination_tables rows joined to venue_tables
	CapacityMin  int     // table_combinations.capacity_min
	CapacityMax  int     // table_combinations.capacity_max
	FeePence     int     // table_combinations.fee_pence
	SetupMinutes int     // table_combinations.setup_minutes
}

// TableIDs returns the member table identifiers in floor order.
func (tc *TableCombination) TableIDs() []uint64 {
	ids := make([]uint64, 0, len(tc.Tables))
	for _, t := range tc.Tables {
		ids = append(ids, t.ID)
	}
	return ids
}

// Fits reports whether the party size falls inside the combination's
// capacity range.
func (tc *TableCombination) Fits(partySize int) bool {
	return partySize >= tc.CapacityMin && partySize <= tc.CapacityMax
}

// HasTable reports whether the given table is a member of the
// combination.
func (tc *TableCombination) HasTable(tableID uint64) bool {
	for _, t := range tc.Tables {
		if t.ID == tableID {
			return true
		}
	}
	return false
}
