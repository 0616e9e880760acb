package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
	"github.com/brlvenue/table-reservation/internal/queue"
	"github.com/brlvenue/table-reservation/internal/repository"
)

// createBookingRequest is the admission payload.  Table IDs are
// required for ordinary parties (the floor plan is chosen upstream);
// parties at or above the combination threshold are assigned a
// combination by the resolver instead.
type createBookingRequest struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Phone        string   `json:"phone" validate:"omitempty,min=7"`
	Day          string   `json:"day" validate:"required"`
	Arrival      string   `json:"arrival" validate:"required"`
	PartySize    int      `json:"party_size" validate:"required,min=1,max=40"`
	TableIDs     []uint64 `json:"table_ids" validate:"omitempty,dive,min=1"`
	DepositPence int      `json:"deposit_pence" validate:"min=0"`
	PaymentRef   string   `json:"payment_ref"`
	Override     *struct {
		Reason           string `json:"reason"`
		AdditionalTables int    `json:"additional_tables"`
	} `json:"override"`
}

// CreateBooking handles POST /v1/bookings.  The admission sequence is
// limit check, table assignment, atomic reserve, then reference and
// check-in-code minting.  A lost write race (ErrConflict) retries the
// whole sequence once before surfacing 409.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		h.Metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Email == "" && req.Phone == "" {
		h.Metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email or phone is required"})
	}
	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		h.Metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day, expected YYYY-MM-DD"})
	}
	arrival, err := time.Parse("15:04", req.Arrival)
	if err != nil {
		h.Metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid arrival, expected HH:MM"})
	}
	arrivalAt := time.Date(day.Year(), day.Month(), day.Day(), arrival.Hour(), arrival.Minute(), 0, 0, time.UTC)

	ctx := c.Request().Context()

	// Identity first: a returning guest keeps their quota and tier
	// across channels, a new one starts a STANDARD record.
	match, err := h.Enforcer.Identify(ctx, booking.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "customer lookup failed"})
	}
	customer := match.Customer
	if customer == nil {
		customer, err = h.Customers.Create(ctx, req.Name, req.Email, req.Phone)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "customer create failed"})
		}
	}

	// Effective quota for this transaction.  Overrides are an
	// explicit, attributable escape hatch reserved for admins.
	quota := h.Policy.Quota(customer.Tier)
	if req.Override != nil {
		if role(c) != "ADMIN" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "override requires admin"})
		}
		decision, err := h.Enforcer.AdminOverride(customer, req.Override.Reason, req.Override.AdditionalTables)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "override reason and table count are required"})
		}
		quota = decision.ModifiedLimit
		if err := h.Customers.RecordOverride(ctx, customer.ID, subject(c), decision.Reason, req.Override.AdditionalTables, decision.ModifiedLimit); err != nil {
			// The enforcer already logged the decision; a lost row
			// is reconciled from logs.
			h.Log.Warn("override audit write failed", zap.Uint64("customer_id", customer.ID), zap.Error(err))
		}
	}

	var booked *model.Booking
	for attempt := 0; attempt < 2; attempt++ {
		booked, err = h.admit(c, &req, customer, quota, arrivalAt, day)
		if err == nil || !errors.Is(err, booking.ErrConflict) {
			break
		}
		// A concurrent request won the quota or slot race; re-run
		// the checks once against the fresh calendar state.
	}
	if err != nil {
		return h.rejectAdmission(c, err)
	}

	reference, code, err := h.mintCredentials(c, customer, booked)
	if err != nil {
		h.Log.Error("credential minting failed", zap.Uint64("booking_id", booked.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue booking reference"})
	}

	_ = h.Customers.Touch(ctx, customer.ID, time.Now())
	h.Metrics.BookingsAccepted.Inc()

	// Notification is best-effort: the booking stands even if the
	// broker is down.
	now := time.Now().UTC()
	if err := h.Publisher.BookingConfirmed(ctx, queue.BookingConfirmedEvent{
		EventID:      uuid.NewString(),
		Reference:    reference,
		CheckInCode:  code,
		CustomerName: customer.Name,
		Email:        customer.Email,
		Day:          req.Day,
		ArrivalAt:    req.Arrival,
		PartySize:    req.PartySize,
		TableIDs:     booked.TableIDs,
		DepositPence: booked.DepositPence,
		ConfirmedAt:  now.Format(time.RFC3339),
	}); err != nil {
		h.Log.Warn("confirmation event publish failed", zap.String("reference", reference), zap.Error(err))
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"reference":     reference,
		"check_in_code": code,
		"tables":        booked.TableIDs,
		"status":        model.StatusConfirmed,
		"deposit_pence": booked.DepositPence,
	})
}

// admit runs one pass of the admission sequence and returns the
// reserved booking.  Business rejections come back as the booking
// package's sentinel errors.
func (h *BookingHandler) admit(c echo.Context, req *createBookingRequest, customer *model.Customer, quota int, arrivalAt, day time.Time) (*model.Booking, error) {
	ctx := c.Request().Context()

	limit, err := h.Enforcer.ValidateBookingLimit(ctx, customer, day)
	if err != nil {
		return nil, err
	}

	var tableIDs []uint64
	if req.PartySize >= h.Policy.CombinationMinParty {
		elig := h.Resolver.Eligibility(req.PartySize)
		if !elig.Eligible {
			return nil, booking.ErrCombinationUnavailable
		}
		avail, err := h.Resolver.CombinedAvailability(ctx, arrivalAt, req.PartySize)
		if err != nil {
			return nil, err
		}
		if !avail.Available {
			return nil, booking.ErrCombinationUnavailable
		}
		tableIDs = elig.TableIDs
	} else {
		if len(req.TableIDs) == 0 {
			return nil, booking.ErrValidation
		}
		for _, id := range req.TableIDs {
			decision, err := h.Resolver.ValidateIndividualBooking(ctx, id, arrivalAt)
			if err != nil {
				return nil, err
			}
			if !decision.Allowed {
				return nil, booking.ErrCombinationUnavailable
			}
		}
		statuses, err := h.Tables.Statuses(ctx, req.TableIDs, arrivalAt)
		if err != nil {
			return nil, err
		}
		for _, id := range req.TableIDs {
			if statuses[id] != model.TableFree {
				return nil, booking.ErrConflict
			}
		}
		tableIDs = req.TableIDs
	}

	// The advisory check keeps obviously over-quota requests out of
	// the transaction; the conditional write inside Reserve is the
	// authoritative guard.
	if !limit.Allowed && quota <= h.Policy.Quota(customer.Tier) {
		return nil, booking.ErrLimitExceeded
	}
	if limit.Allowed && len(tableIDs) > limit.Remaining && quota <= h.Policy.Quota(customer.Tier) {
		return nil, booking.ErrLimitExceeded
	}

	var paymentRef *string
	if req.PaymentRef != "" {
		paymentRef = &req.PaymentRef
	}
	return h.Bookings.Reserve(ctx, repository.ReserveParams{
		CustomerID:   customer.ID,
		Day:          day,
		ArrivalAt:    arrivalAt,
		PartySize:    req.PartySize,
		TableIDs:     tableIDs,
		DepositPence: req.DepositPence,
		PaymentRef:   paymentRef,
		Quota:        quota,
	})
}

// mintCredentials draws and commits the booking reference and
// check-in code.  The unique indexes settle write races: a duplicate
// triggers a redraw within the generator's attempt budget.
func (h *BookingHandler) mintCredentials(c echo.Context, customer *model.Customer, booked *model.Booking) (string, string, error) {
	ctx := c.Request().Context()

	var reference string
	var err error
	for attempt := 0; attempt < h.Generator.MaxAttempts(); attempt++ {
		if customer.VIP() {
			reference, err = h.Generator.VIPBookingReference(ctx)
		} else {
			reference, err = h.Generator.BookingReference(ctx)
		}
		if err != nil {
			return "", "", err
		}
		err = h.Bookings.AssignReference(ctx, booked.ID, reference)
		if err == nil {
			break
		}
		if !errors.Is(err, booking.ErrConflict) {
			return "", "", err
		}
		h.Metrics.ReferenceRedraws.Inc()
	}
	if err != nil {
		return "", "", booking.ErrGenerationExhausted
	}

	var code string
	for attempt := 0; attempt < h.Generator.MaxAttempts(); attempt++ {
		code, err = h.Generator.CheckInCode(ctx)
		if err != nil {
			return "", "", err
		}
		err = h.CheckIns.Create(ctx, booked.ID, code)
		if err == nil {
			break
		}
		if !errors.Is(err, booking.ErrConflict) {
			return "", "", err
		}
		h.Metrics.ReferenceRedraws.Inc()
	}
	if err != nil {
		return "", "", booking.ErrGenerationExhausted
	}
	return reference, code, nil
}

// rejectAdmission maps admission failures onto HTTP responses and the
// rejection counter.
func (h *BookingHandler) rejectAdmission(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrValidation):
		h.Metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_ids are required for this party size"})
	case errors.Is(err, booking.ErrLimitExceeded):
		h.Metrics.BookingsRejected.WithLabelValues("limit").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "Maximum tables reached"})
	case errors.Is(err, booking.ErrCombinationUnavailable):
		h.Metrics.BookingsRejected.WithLabelValues("combination").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "requested tables are unavailable for this slot"})
	case errors.Is(err, booking.ErrConflict):
		h.Metrics.BookingsRejected.WithLabelValues("conflict").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "a concurrent booking took the slot, please retry"})
	default:
		h.Log.Error("admission failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
}

// CancelBooking handles DELETE /v1/bookings/:reference.  The
// cancellation is the durable fact; refund processing is best-effort
// and reported in the response as refund_processed.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	ref := c.Param("reference")
	if !h.Generator.ValidateReference(ref) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	ctx := c.Request().Context()
	outcome, err := h.Cancellation.Cancel(ctx, ref, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrPastEvent):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event already started"})
		case errors.Is(err, booking.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		default:
			h.Log.Error("cancellation failed", zap.String("reference", ref), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancellation failed"})
		}
	}

	h.Metrics.Cancellations.Inc()
	if outcome.Refund.Eligible {
		if outcome.RefundProcessed {
			h.Metrics.RefundsIssued.Inc()
		} else {
			h.Metrics.RefundFailures.Inc()
		}
	}

	customer, custErr := h.Customers.GetByID(ctx, outcome.Booking.CustomerID)
	if custErr == nil {
		if err := h.Publisher.BookingCancelled(ctx, queue.BookingCancelledEvent{
			EventID:         uuid.NewString(),
			Reference:       ref,
			CustomerName:    customer.Name,
			Email:           customer.Email,
			RefundEligible:  outcome.Refund.Eligible,
			RefundPence:     outcome.Refund.Pence,
			RefundProcessed: outcome.RefundProcessed,
			CancelledAt:     time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			h.Log.Warn("cancellation event publish failed", zap.String("reference", ref), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reference":        ref,
		"status":           model.StatusCancelled,
		"refund_eligible":  outcome.Refund.Eligible,
		"refund_pence":     outcome.Refund.Pence,
		"refund_processed": outcome.RefundProcessed,
	})
}

// GetBooking handles GET /v1/bookings/:reference for staff lookups.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	ref := c.Param("reference")
	b, err := h.Bookings.GetByReference(c.Request().Context(), ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reference":     b.Reference,
		"day":           b.Day.Format("2006-01-02"),
		"arrival_at":    b.ArrivalAt.Format(time.RFC3339),
		"party_size":    b.PartySize,
		"tables":        b.TableIDs,
		"status":        b.Status,
		"deposit_pence": b.DepositPence,
	})
}

// ValidateReference handles GET /v1/bookings/:reference/validate.
// Pure format and year-range validation, no database round trip.
func (h *BookingHandler) ValidateReference(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"valid": h.Generator.ValidateReference(c.Param("reference")),
	})
}
