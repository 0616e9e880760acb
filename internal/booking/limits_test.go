package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/config"
	"github.com/brlvenue/table-reservation/internal/model"
)

func testPolicy() config.Policy {
	return config.Policy{
		StandardQuota:        2,
		VIPQuota:             3,
		CombinationMinParty:  7,
		FullRefundHours:      48,
		HalfRefundHours:      24,
		RiskNoShowWeight:     0.5,
		RiskCancelWeight:     0.3,
		RiskRecencyWeight:    0.2,
		MaxReferenceAttempts: 5,
		MaxOverrideTables:    3,
	}
}

// fakeHistory serves per-day table counts and history entries from
// fixed maps.
type fakeHistory struct {
	reserved map[uint64]int
	entries  []model.HistoryEntry
}

func (f *fakeHistory) TablesReservedOn(_ context.Context, customerID uint64, _ time.Time) (int, error) {
	return f.reserved[customerID], nil
}

func (f *fakeHistory) History(_ context.Context, _ uint64, _, _ time.Time) ([]model.HistoryEntry, error) {
	return f.entries, nil
}

func standardCustomer(id uint64) *model.Customer {
	return &model.Customer{ID: id, Name: "Alice Moore", Tier: model.TierStandard}
}

func goldCustomer(id uint64) *model.Customer {
	return &model.Customer{ID: id, Name: "Ben Osei", Tier: model.TierGold}
}

func TestValidateBookingLimit(t *testing.T) {
	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		customer  *model.Customer
		reserved  int
		allowed   bool
		remaining int
	}{
		{"standard first table", standardCustomer(1), 0, true, 2},
		{"standard one reserved", standardCustomer(1), 1, true, 1},
		{"standard at quota", standardCustomer(1), 2, false, 0},
		{"gold two reserved", goldCustomer(2), 2, true, 1},
		{"gold at quota", goldCustomer(2), 3, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hist := &fakeHistory{reserved: map[uint64]int{tc.customer.ID: tc.reserved}}
			e := booking.NewEnforcer(nil, hist, testPolicy(), nil)

			d, err := e.ValidateBookingLimit(context.Background(), tc.customer, day)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.remaining, d.Remaining)
			if !tc.allowed {
				assert.Equal(t, "Maximum tables reached", d.Reason)
			}
		})
	}
}

func TestValidateBookingLimitCountsTablesNotBookings(t *testing.T) {
	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	// Two single-table bookings put a standard customer at quota even
	// though neither booking alone did.
	hist := &fakeHistory{reserved: map[uint64]int{1: 2}}
	e := booking.NewEnforcer(nil, hist, testPolicy(), nil)

	d, err := e.ValidateBookingLimit(context.Background(), standardCustomer(1), day)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestAdminOverride(t *testing.T) {
	e := booking.NewEnforcer(nil, &fakeHistory{}, testPolicy(), nil)

	t.Run("requires reason", func(t *testing.T) {
		_, err := e.AdminOverride(standardCustomer(1), "   ", 1)
		assert.ErrorIs(t, err, booking.ErrValidation)
	})

	t.Run("requires positive table count", func(t *testing.T) {
		_, err := e.AdminOverride(standardCustomer(1), "regular's anniversary", 0)
		assert.ErrorIs(t, err, booking.ErrValidation)
	})

	t.Run("raises the effective limit", func(t *testing.T) {
		d, err := e.AdminOverride(standardCustomer(1), "regular's anniversary", 1)
		require.NoError(t, err)
		assert.True(t, d.Approved)
		assert.Equal(t, 3, d.ModifiedLimit)
		assert.Equal(t, "regular's anniversary", d.Reason)
	})

	t.Run("clamps to the ceiling", func(t *testing.T) {
		d, err := e.AdminOverride(goldCustomer(2), "private event buyout", 10)
		require.NoError(t, err)
		assert.True(t, d.Approved)
		assert.Equal(t, 3+3, d.ModifiedLimit)
	})
}

func history(now time.Time, statuses ...string) []model.HistoryEntry {
	entries := make([]model.HistoryEntry, 0, len(statuses))
	for i, s := range statuses {
		entries = append(entries, model.HistoryEntry{
			Day:        now.AddDate(0, 0, -(i + 7)),
			TableCount: 1,
			Status:     s,
		})
	}
	return entries
}

func TestRiskScoreBounds(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	e := booking.NewEnforcer(nil, &fakeHistory{}, testPolicy(), nil)

	assert.Equal(t, 0, e.RiskScore(nil, now))
	assert.Equal(t, 0, e.RiskScore(history(now, model.StatusArrived, model.StatusArrived), now))

	worst := e.RiskScore(history(now, model.StatusNoShow, model.StatusNoShow, model.StatusNoShow), now)
	assert.GreaterOrEqual(t, worst, 0)
	assert.LessOrEqual(t, worst, 100)
	assert.Greater(t, worst, 50, "all-no-show history should score high")
}

func TestRiskScoreMonotoneInNoShows(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	e := booking.NewEnforcer(nil, &fakeHistory{}, testPolicy(), nil)

	// Swapping one attended booking for a no-show must never lower
	// the score.
	prev := -1
	for noShows := 0; noShows <= 5; noShows++ {
		statuses := make([]string, 5)
		for i := range statuses {
			if i < noShows {
				statuses[i] = model.StatusNoShow
			} else {
				statuses[i] = model.StatusArrived
			}
		}
		score := e.RiskScore(history(now, statuses...), now)
		assert.GreaterOrEqual(t, score, prev, "score dropped when no-shows rose to %d", noShows)
		prev = score
	}
}

func TestRiskScoreNoShowOutweighsCancellation(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	e := booking.NewEnforcer(nil, &fakeHistory{}, testPolicy(), nil)

	noShow := e.RiskScore(history(now, model.StatusNoShow, model.StatusArrived), now)
	cancel := e.RiskScore(history(now, model.StatusCancelled, model.StatusArrived), now)
	assert.GreaterOrEqual(t, noShow, cancel)
}
