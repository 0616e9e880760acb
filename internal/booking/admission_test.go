package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
)

// quotaLedger is an in-memory stand-in for the booking store's
// per-day aggregate.  reserve re-checks the quota condition under the
// lock the way the conditional UPDATE on booking_limits does, so a
// writer racing past the advisory check still loses.
type quotaLedger struct {
	mu        sync.Mutex
	reserved  map[uint64]int
	conflicts int
}

func (l *quotaLedger) TablesReservedOn(_ context.Context, customerID uint64, _ time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved[customerID], nil
}

func (l *quotaLedger) History(_ context.Context, _ uint64, _, _ time.Time) ([]model.HistoryEntry, error) {
	return nil, nil
}

func (l *quotaLedger) reserve(customerID uint64, n, quota int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserved[customerID]+n > quota {
		l.conflicts++
		return booking.ErrConflict
	}
	l.reserved[customerID] += n
	return nil
}

// Two simultaneous admissions with one table of quota left: both pass
// the advisory check against the same stale count, the conditional
// write grants exactly one, and the loser's retry re-runs the check
// against the fresh count and comes back as a limit rejection rather
// than a second success.
func TestConcurrentAdmissionAtQuotaBoundary(t *testing.T) {
	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	quota := testPolicy().StandardQuota
	cust := standardCustomer(1)

	ledger := &quotaLedger{reserved: map[uint64]int{cust.ID: quota - 1}}
	e := booking.NewEnforcer(nil, ledger, testPolicy(), nil)

	// Both workers hold at the gate between check and write, so each
	// ran the advisory check before either write landed.
	var gate sync.WaitGroup
	gate.Add(2)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first := true
			var err error
			for attempt := 0; attempt < 2; attempt++ {
				var d booking.LimitDecision
				d, err = e.ValidateBookingLimit(context.Background(), cust, day)
				if err != nil {
					break
				}
				if !d.Allowed {
					err = booking.ErrLimitExceeded
					break
				}
				if first {
					gate.Done()
					gate.Wait()
					first = false
				}
				err = ledger.reserve(cust.ID, 1, quota)
				if err == nil || !errors.Is(err, booking.ErrConflict) {
					break
				}
			}
			results[i] = err
		}(i)
	}
	wg.Wait()

	var wins, limited int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, booking.ErrLimitExceeded):
			limited++
		default:
			t.Fatalf("unexpected admission error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one admission wins the last table")
	assert.Equal(t, 1, limited, "the loser surfaces a limit rejection, not a conflict")
	assert.Equal(t, 1, ledger.conflicts, "the loser hit the conditional write exactly once")
	assert.Equal(t, quota, ledger.reserved[cust.ID], "the ledger never exceeds quota")
}
