package booking

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brlvenue/table-reservation/internal/config"
	"github.com/brlvenue/table-reservation/internal/model"
)

// HistoryStore is the booking-history collaborator.  TablesReservedOn
// reads the per-day aggregate maintained alongside the booking rows;
// History returns the rolling per-booking view used for risk scoring.
type HistoryStore interface {
	TablesReservedOn(ctx context.Context, customerID uint64, day time.Time) (int, error)
	History(ctx context.Context, customerID uint64, from, to time.Time) ([]model.HistoryEntry, error)
}

// LimitDecision is the outcome of a quota check.  Remaining is the
// count of tables still available on the date before the current
// request is applied.
type LimitDecision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining_tables"`
	Reason    string `json:"reason,omitempty"`
}

// OverrideDecision is the outcome of an admin quota override.  The
// modified limit applies to the current transaction only; it is never
// persisted against the customer.
type OverrideDecision struct {
	Approved      bool   `json:"approved"`
	ModifiedLimit int    `json:"modified_limit"`
	Reason        string `json:"reason"`
}

// Enforcer decides whether a customer may place another booking on a
// given date.  The check itself is advisory: the authoritative guard
// is the conditional quota update the booking store performs inside
// the reservation transaction, so two concurrent requests at the
// boundary cannot both pass.
type Enforcer struct {
	customers CustomerStore
	history   HistoryStore
	policy    config.Policy
	log       *zap.Logger
}

// NewEnforcer wires an Enforcer to its collaborators.
func NewEnforcer(customers CustomerStore, history HistoryStore, policy config.Policy, log *zap.Logger) *Enforcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enforcer{customers: customers, history: history, policy: policy, log: log}
}

// Identify merges a contact across known channels by running the
// ranked matcher chain.  The first matching customer wins; every
// channel that agreed with that customer is reported so callers can
// see cross-platform identity.  Pure lookup, no mutation.
func (e *Enforcer) Identify(ctx context.Context, contact Contact) (IdentityMatch, error) {
	var match IdentityMatch
	for _, m := range defaultMatchers {
		cust, err := m.match(ctx, e.customers, contact)
		if err != nil {
			return IdentityMatch{}, err
		}
		if cust == nil {
			continue
		}
		if match.Customer == nil {
			match.Customer = cust
			match.Identified = true
			match.Confidence = m.confidence()
		}
		if cust.ID == match.Customer.ID && !containsChannel(match.Channels, m.channel()) {
			match.Channels = append(match.Channels, m.channel())
		}
	}
	return match, nil
}

// ValidateBookingLimit computes quota(tier) minus the tables already
// reserved by the customer on the date.  The count is of tables, not
// bookings: a customer holding two single-table bookings on the date
// is at quota even if each booking was for a party of one.
func (e *Enforcer) ValidateBookingLimit(ctx context.Context, customer *model.Customer, day time.Time) (LimitDecision, error) {
	if customer == nil {
		return LimitDecision{}, ErrValidation
	}
	reserved, err := e.history.TablesReservedOn(ctx, customer.ID, day)
	if err != nil {
		return LimitDecision{}, err
	}
	quota := e.policy.Quota(customer.Tier)
	remaining := quota - reserved
	if remaining <= 0 {
		return LimitDecision{Allowed: false, Remaining: 0, Reason: "Maximum tables reached"}, nil
	}
	return LimitDecision{Allowed: true, Remaining: remaining}, nil
}

// RiskScore is a weighted function of historical no-show rate,
// cancellation rate and booking recency, bounded to [0,100].  With
// the no-show weight at or above the cancellation weight the score is
// non-decreasing in no-shows, which LoadPolicy guarantees.
func (e *Enforcer) RiskScore(history []model.HistoryEntry, now time.Time) int {
	if len(history) == 0 {
		return 0
	}
	var noShows, cancels int
	last := history[0].Day
	for _, h := range history {
		switch h.Status {
		case model.StatusNoShow:
			noShows++
		case model.StatusCancelled:
			cancels++
		}
		if h.Day.After(last) {
			last = h.Day
		}
	}
	total := float64(len(history))
	noShowRate := float64(noShows) / total
	cancelRate := float64(cancels) / total

	// A guest who last booked over a year ago contributes no recency
	// signal; recent activity scales the factor down linearly.
	days := now.Sub(last).Hours() / 24
	recency := 1 - math.Min(days/365, 1)

	score := 100 * (e.policy.RiskNoShowWeight*noShowRate +
		e.policy.RiskCancelWeight*cancelRate +
		e.policy.RiskRecencyWeight*recency*noShowRate)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// AdminOverride raises a customer's effective quota for the current
// transaction only.  Every override must be attributable: a non-empty
// reason is required and the decision is logged for the audit trail.
// The additional table count is clamped to the policy ceiling.
func (e *Enforcer) AdminOverride(customer *model.Customer, reason string, additionalTables int) (OverrideDecision, error) {
	if customer == nil {
		return OverrideDecision{}, ErrValidation
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || additionalTables <= 0 {
		return OverrideDecision{Approved: false}, ErrValidation
	}
	if additionalTables > e.policy.MaxOverrideTables {
		additionalTables = e.policy.MaxOverrideTables
	}
	limit := e.policy.Quota(customer.Tier) + additionalTables
	e.log.Info("admin booking override",
		zap.Uint64("customer_id", customer.ID),
		zap.String("reason", reason),
		zap.Int("additional_tables", additionalTables),
		zap.Int("modified_limit", limit),
	)
	return OverrideDecision{Approved: true, ModifiedLimit: limit, Reason: reason}, nil
}

func containsChannel(channels []string, ch string) bool {
	for _, c := range channels {
		if c == ch {
			return true
		}
	}
	return false
}
