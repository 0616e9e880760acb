package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brlvenue/table-reservation/internal/config"
	"github.com/brlvenue/table-reservation/internal/model"
)

// CancellationStore is the slice of the booking store the policy
// needs.  Cancel must be an atomic status transition: it fails with
// ErrAlreadyCancelled when the booking is already cancelled and
// records the refund decision on the row it cancels.
type CancellationStore interface {
	GetByReference(ctx context.Context, ref string) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID uint64, refundEligible bool, refundPence int) (*model.Booking, error)
}

// RefundGateway is the payment-gateway collaborator.  Refunds are
// best-effort: a gateway failure never invalidates a cancellation
// already committed.
type RefundGateway interface {
	Refund(ctx context.Context, paymentRef string, amountPence int) (RefundResult, error)
}

// RefundResult reports the gateway's answer to a refund request.
type RefundResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id"`
}

// Refund is a computed refund decision.
type Refund struct {
	Eligible bool `json:"eligible"`
	Pence    int  `json:"amount"`
}

// CancellationOutcome is returned to the caller after a cancellation
// commits.  RefundProcessed is false when the gateway call failed or
// was skipped; the refund is then retried out-of-band.
type CancellationOutcome struct {
	Booking         *model.Booking
	Refund          Refund
	RefundProcessed bool
	RefundID        string
}

// CancellationPolicy computes refund eligibility from the time
// remaining before the event and orchestrates the cancellation
// itself.  The schedule is fixed policy: full deposit at 48+ hours,
// half (integer floor) between 24 and 48, nothing under 24.
type CancellationPolicy struct {
	store   CancellationStore
	gateway RefundGateway
	policy  config.Policy
	log     *zap.Logger
}

// NewCancellationPolicy wires the policy to its collaborators.  The
// gateway may be nil (refunds then always fall to out-of-band
// reconciliation).
func NewCancellationPolicy(store CancellationStore, gateway RefundGateway, policy config.Policy, log *zap.Logger) *CancellationPolicy {
	if log == nil {
		log = zap.NewNop()
	}
	return &CancellationPolicy{store: store, gateway: gateway, policy: policy, log: log}
}

// ComputeRefund is the pure schedule: it maps hours-until-event and
// deposit to a refund decision.  A cancellation at or after the event
// start is rejected with ErrPastEvent; the refund computation does
// not apply.
func (p *CancellationPolicy) ComputeRefund(eventAt, cancelAt time.Time, depositPence int) (Refund, error) {
	until := eventAt.Sub(cancelAt)
	if until <= 0 {
		return Refund{}, ErrPastEvent
	}
	hours := until.Hours()
	switch {
	case hours >= float64(p.policy.FullRefundHours):
		return Refund{Eligible: true, Pence: depositPence}, nil
	case hours >= float64(p.policy.HalfRefundHours):
		return Refund{Eligible: true, Pence: depositPence / 2}, nil
	default:
		return Refund{Eligible: false, Pence: 0}, nil
	}
}

// Cancel cancels a booking by reference.  The cancellation is the
// durable fact: it commits before any money moves, and a refund
// failure is logged and left for out-of-band retry rather than
// rolling the cancellation back.  Cancelling an already-cancelled
// booking fails with ErrAlreadyCancelled and does not recompute the
// refund.
func (p *CancellationPolicy) Cancel(ctx context.Context, ref string, at time.Time) (*CancellationOutcome, error) {
	b, err := p.store.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	refund, err := p.ComputeRefund(b.ArrivalAt, at, b.DepositPence)
	if err != nil {
		return nil, err
	}
	cancelled, err := p.store.Cancel(ctx, b.ID, refund.Eligible, refund.Pence)
	if err != nil {
		return nil, err
	}

	out := &CancellationOutcome{Booking: cancelled, Refund: refund}
	if !refund.Eligible || refund.Pence == 0 {
		return out, nil
	}
	if p.gateway == nil || b.PaymentRef == nil {
		p.log.Warn("refund deferred to reconciliation",
			zap.String("reference", ref),
			zap.Int("amount_pence", refund.Pence),
		)
		return out, nil
	}
	res, err := p.gateway.Refund(ctx, *b.PaymentRef, refund.Pence)
	if err != nil || !res.Success {
		p.log.Error("refund failed, queued for retry",
			zap.String("reference", ref),
			zap.Int("amount_pence", refund.Pence),
			zap.Error(err),
		)
		return out, nil
	}
	out.RefundProcessed = true
	out.RefundID = res.RefundID
	return out, nil
}
