package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
)

// fakeCancelStore holds bookings by reference and applies the status
// transition in memory.
type fakeCancelStore struct {
	bookings map[string]*model.Booking
}

func (f *fakeCancelStore) GetByReference(_ context.Context, ref string) (*model.Booking, error) {
	b, ok := f.bookings[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (f *fakeCancelStore) Cancel(_ context.Context, bookingID uint64, refundEligible bool, refundPence int) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == bookingID {
			b.Status = model.StatusCancelled
			b.RefundEligible = refundEligible
			b.RefundPence = refundPence
			return b, nil
		}
	}
	return nil, errors.New("not found")
}

// fakeGateway scripts the refund outcome.
type fakeGateway struct {
	result booking.RefundResult
	err    error
	calls  int
}

func (f *fakeGateway) Refund(_ context.Context, _ string, _ int) (booking.RefundResult, error) {
	f.calls++
	return f.result, f.err
}

func TestComputeRefund(t *testing.T) {
	p := booking.NewCancellationPolicy(nil, nil, testPolicy(), nil)
	eventAt := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		before   time.Duration
		deposit  int
		eligible bool
		pence    int
	}{
		{"72 hours out", 72 * time.Hour, 5000, true, 5000},
		{"exactly 48 hours", 48 * time.Hour, 5000, true, 5000},
		{"30 hours out", 30 * time.Hour, 5000, true, 2500},
		{"exactly 24 hours", 24 * time.Hour, 5000, true, 2500},
		{"odd deposit floors", 30 * time.Hour, 5001, true, 2500},
		{"10 hours out", 10 * time.Hour, 5000, false, 0},
		{"one minute out", time.Minute, 5000, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := p.ComputeRefund(eventAt, eventAt.Add(-tc.before), tc.deposit)
			require.NoError(t, err)
			assert.Equal(t, tc.eligible, r.Eligible)
			assert.Equal(t, tc.pence, r.Pence)
		})
	}

	t.Run("at event start", func(t *testing.T) {
		_, err := p.ComputeRefund(eventAt, eventAt, 5000)
		assert.ErrorIs(t, err, booking.ErrPastEvent)
	})

	t.Run("after event start", func(t *testing.T) {
		_, err := p.ComputeRefund(eventAt, eventAt.Add(2*time.Hour), 5000)
		assert.ErrorIs(t, err, booking.ErrPastEvent)
	})
}

func paidBooking(ref string, arrivalAt time.Time) *model.Booking {
	payRef := "pay_9f2c"
	return &model.Booking{
		ID:           42,
		Reference:    ref,
		CustomerID:   1,
		Day:          arrivalAt.Truncate(24 * time.Hour),
		ArrivalAt:    arrivalAt,
		PartySize:    4,
		TableIDs:     []uint64{3},
		Status:       model.StatusConfirmed,
		DepositPence: 5000,
		PaymentRef:   &payRef,
	}
}

func TestCancelFullRefund(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
	store := &fakeCancelStore{bookings: map[string]*model.Booking{
		"BRL-2026-12345": paidBooking("BRL-2026-12345", arrival),
	}}
	gw := &fakeGateway{result: booking.RefundResult{Success: true, RefundID: "re_001"}}
	p := booking.NewCancellationPolicy(store, gw, testPolicy(), nil)

	out, err := p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Booking.Status)
	assert.True(t, out.Refund.Eligible)
	assert.Equal(t, 5000, out.Refund.Pence)
	assert.True(t, out.RefundProcessed)
	assert.Equal(t, "re_001", out.RefundID)
	assert.Equal(t, 1, gw.calls)
}

func TestCancelIneligibleSkipsGateway(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
	store := &fakeCancelStore{bookings: map[string]*model.Booking{
		"BRL-2026-12345": paidBooking("BRL-2026-12345", arrival),
	}}
	gw := &fakeGateway{result: booking.RefundResult{Success: true}}
	p := booking.NewCancellationPolicy(store, gw, testPolicy(), nil)

	out, err := p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(-10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Booking.Status)
	assert.False(t, out.Refund.Eligible)
	assert.Zero(t, gw.calls)
}

func TestCancelPastEvent(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
	store := &fakeCancelStore{bookings: map[string]*model.Booking{
		"BRL-2026-12345": paidBooking("BRL-2026-12345", arrival),
	}}
	p := booking.NewCancellationPolicy(store, nil, testPolicy(), nil)

	_, err := p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(time.Hour))
	assert.ErrorIs(t, err, booking.ErrPastEvent)
	assert.Equal(t, model.StatusConfirmed, store.bookings["BRL-2026-12345"].Status)
}

func TestCancelTwice(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
	store := &fakeCancelStore{bookings: map[string]*model.Booking{
		"BRL-2026-12345": paidBooking("BRL-2026-12345", arrival),
	}}
	gw := &fakeGateway{result: booking.RefundResult{Success: true}}
	p := booking.NewCancellationPolicy(store, gw, testPolicy(), nil)

	_, err := p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(-72*time.Hour))
	require.NoError(t, err)

	// The second attempt must not recompute or re-issue the refund.
	_, err = p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(-71*time.Hour))
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
	assert.Equal(t, 1, gw.calls)
}

func TestCancelSurvivesRefundFailure(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
	store := &fakeCancelStore{bookings: map[string]*model.Booking{
		"BRL-2026-12345": paidBooking("BRL-2026-12345", arrival),
	}}
	gw := &fakeGateway{err: errors.New("gateway timeout")}
	p := booking.NewCancellationPolicy(store, gw, testPolicy(), nil)

	out, err := p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(-72*time.Hour))
	require.NoError(t, err, "a refund failure must not invalidate the cancellation")
	assert.Equal(t, model.StatusCancelled, out.Booking.Status)
	assert.True(t, out.Refund.Eligible)
	assert.False(t, out.RefundProcessed)
	assert.True(t, out.Booking.RefundEligible, "the owed refund stays recorded for reconciliation")
}

func TestCancelWithoutGatewayDefersRefund(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)
	store := &fakeCancelStore{bookings: map[string]*model.Booking{
		"BRL-2026-12345": paidBooking("BRL-2026-12345", arrival),
	}}
	p := booking.NewCancellationPolicy(store, nil, testPolicy(), nil)

	out, err := p.Cancel(context.Background(), "BRL-2026-12345", arrival.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.True(t, out.Refund.Eligible)
	assert.False(t, out.RefundProcessed)
}
