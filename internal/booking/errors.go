// Package booking implements the admission-control core of the
// reservation service: reference and check-in-code generation, per-day
// table quota enforcement, table-combination resolution and the
// cancellation/refund policy.  The package holds the business rules
// only; persistence is reached through narrow store interfaces so the
// rules stay testable without a database.
package booking

import "errors"

// ErrValidation is returned for malformed input (bad date format,
// zero party size) before any store access.  Handlers should
// translate this into an HTTP 400 response.
var ErrValidation = errors.New("validation failed")

// ErrLimitExceeded is returned when a booking would push a customer
// past their daily table quota.  This is a business rejection, not a
// fault; the reason string on the decision carries the operator-facing
// message.
var ErrLimitExceeded = errors.New("maximum tables reached")

// ErrCombinationUnavailable is returned when a large party requests a
// table combination that is not free for the requested slot or whose
// capacity range does not contain the party size.
var ErrCombinationUnavailable = errors.New("combination unavailable")

// ErrConflict is returned when a concurrent reservation won the race
// for the same quota or table slot.  Callers should retry the whole
// admission sequence once before surfacing the failure.
var ErrConflict = errors.New("conflict")

// ErrNotConfirmable is returned when a valid, unused check-in code is
// presented against a booking that is not in CONFIRMED state (already
// cancelled or already arrived).  The code is left unconsumed so a
// later valid presentation still works.
var ErrNotConfirmable = errors.New("booking is not in a confirmable state")

// ErrGenerationExhausted is returned when the reference or check-in
// code space could not yield a unique value within the retry budget.
// It should never occur at realistic volumes; when it does, it is
// logged loudly as a capacity-planning signal.
var ErrGenerationExhausted = errors.New("generation exhausted")

// ErrPastEvent is returned when a cancellation arrives at or after
// the event start.  The cancellation itself is rejected; no refund is
// computed.
var ErrPastEvent = errors.New("event already started")

// ErrAlreadyCancelled is returned when cancelling a booking that is
// already cancelled.  The original refund decision stands; it is
// never recomputed.
var ErrAlreadyCancelled = errors.New("booking already cancelled")
