package booking

import (
	"context"
	"sort"
	"time"

	"github.com/brlvenue/table-reservation/internal/config"
	"github.com/brlvenue/table-reservation/internal/model"
)

// TableStatusStore is the table-availability collaborator.  Statuses
// reports FREE/BOOKED per table for a slot; InCombinationWindow
// reports whether a table is tied up by an active combination booking
// covering the slot.
type TableStatusStore interface {
	Statuses(ctx context.Context, tableIDs []uint64, at time.Time) (map[uint64]string, error)
	InCombinationWindow(ctx context.Context, tableID uint64, at time.Time) (bool, error)
}

// Eligibility is the outcome of a combination eligibility check.
type Eligibility struct {
	Eligible bool     `json:"is_eligible"`
	TableIDs []uint64 `json:"combined_tables,omitempty"`
}

// Availability is the outcome of a combined-tables availability check.
type Availability struct {
	Available     bool `json:"available"`
	TotalCapacity int  `json:"total_capacity"`
}

// PartialAvailability reports combinations where some but not all
// member tables are free.  This state is informational only (UI
// "almost available" messaging); it is never offered as a bookable
// combination.
type PartialAvailability struct {
	PartiallyAvailable bool     `json:"partially_available"`
	AvailableTables    []uint64 `json:"available_tables,omitempty"`
}

// CombinationCosts breaks down the price of seating a party on a
// combination.  All amounts are in pence.
type CombinationCosts struct {
	BaseCombinationFee int `json:"base_combination_fee"`
	SetupMinutes       int `json:"setup_time"`
	TotalCost          int `json:"total_cost"`
}

// TableDecision is the outcome of validating a single-table booking.
type TableDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// premiumMultiplierPct is applied to the total when any member table
// of the combination is premium.  Integer percent keeps the pence
// arithmetic exact.
const premiumMultiplierPct = 125

// Resolver decides whether a party warrants merging adjacent tables
// and whether the merged set is free.  Combinations are a fixed,
// small configuration set, so everything here is a pure function of
// party size, calendar state and configuration - no solver.
type Resolver struct {
	combos []model.TableCombination
	tables TableStatusStore
	policy config.Policy
}

// NewResolver builds a Resolver over the loaded combination
// configuration.  Combinations are sorted by capacity so the smallest
// set that fits a party is always offered first.
func NewResolver(combos []model.TableCombination, tables TableStatusStore, policy config.Policy) *Resolver {
	sorted := make([]model.TableCombination, len(combos))
	copy(sorted, combos)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CapacityMax < sorted[j].CapacityMax })
	return &Resolver{combos: sorted, tables: tables, policy: policy}
}

// Eligibility reports whether the party size warrants a combination.
// Below the threshold individual tables are recommended and no
// combination is offered.
func (r *Resolver) Eligibility(partySize int) Eligibility {
	if partySize < r.policy.CombinationMinParty {
		return Eligibility{Eligible: false}
	}
	for _, c := range r.combos {
		if c.Fits(partySize) {
			return Eligibility{Eligible: true, TableIDs: c.TableIDs()}
		}
	}
	return Eligibility{Eligible: false}
}

// CombinedAvailability reports whether a combination fitting the
// party is fully free for the slot.  Available requires every member
// table free for the full slot and the party inside the combination's
// capacity range.
func (r *Resolver) CombinedAvailability(ctx context.Context, at time.Time, partySize int) (Availability, error) {
	for _, c := range r.combos {
		if !c.Fits(partySize) {
			continue
		}
		statuses, err := r.tables.Statuses(ctx, c.TableIDs(), at)
		if err != nil {
			return Availability{}, err
		}
		if allFree(c.TableIDs(), statuses) {
			return Availability{Available: true, TotalCapacity: c.CapacityMax}, nil
		}
	}
	return Availability{Available: false}, nil
}

// Costs prices a combination for the party: the flat combination fee
// plus each member table's base rate, with the premium multiplier
// when any member is in the premium subset.
func (r *Resolver) Costs(partySize int) CombinationCosts {
	for _, c := range r.combos {
		if !c.Fits(partySize) {
			continue
		}
		total := c.FeePence
		premium := false
		for _, t := range c.Tables {
			total += t.BaseRatePence
			if t.Premium {
				premium = true
			}
		}
		if premium {
			total = total * premiumMultiplierPct / 100
		}
		return CombinationCosts{
			BaseCombinationFee: c.FeePence,
			SetupMinutes:       c.SetupMinutes,
			TotalCost:          total,
		}
	}
	return CombinationCosts{}
}

// ValidateIndividualBooking rejects booking a table singly when the
// table belongs to a combination that is active for the requested
// slot, regardless of party size.
func (r *Resolver) ValidateIndividualBooking(ctx context.Context, tableID uint64, at time.Time) (TableDecision, error) {
	for _, c := range r.combos {
		if !c.HasTable(tableID) {
			continue
		}
		active, err := r.tables.InCombinationWindow(ctx, tableID, at)
		if err != nil {
			return TableDecision{}, err
		}
		if active {
			return TableDecision{Allowed: false, Reason: "Table part of combination"}, nil
		}
	}
	return TableDecision{Allowed: true}, nil
}

// PartialAvailability reports, across all configured combinations,
// the member tables that are free for the slot when the combination
// as a whole is not.
func (r *Resolver) PartialAvailability(ctx context.Context, at time.Time) (PartialAvailability, error) {
	for _, c := range r.combos {
		ids := c.TableIDs()
		statuses, err := r.tables.Statuses(ctx, ids, at)
		if err != nil {
			return PartialAvailability{}, err
		}
		var free []uint64
		for _, id := range ids {
			if statuses[id] == model.TableFree {
				free = append(free, id)
			}
		}
		if len(free) > 0 && len(free) < len(ids) {
			return PartialAvailability{PartiallyAvailable: true, AvailableTables: free}, nil
		}
	}
	return PartialAvailability{}, nil
}

// Combinations exposes the loaded configuration (read-only use).
func (r *Resolver) Combinations() []model.TableCombination { return r.combos }

func allFree(ids []uint64, statuses map[uint64]string) bool {
	for _, id := range ids {
		if statuses[id] != model.TableFree {
			return false
		}
	}
	return true
}
