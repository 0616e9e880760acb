package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/repository"
)

// checkInRequest carries the code presented at the door.
type checkInRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// CheckIn handles POST /v1/check-in.  Staff only.  The code is
// consumed atomically so a second presentation of the same code is
// rejected rather than double-marking the booking.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	var req checkInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code must be 6 characters"})
	}

	ctx := c.Request().Context()
	bookingID, err := h.CheckIns.Consume(ctx, req.Code, time.Now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown check-in code"})
	case errors.Is(err, booking.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "code already used"})
	case errors.Is(err, booking.ErrNotConfirmable):
		// The code survives this rejection unconsumed; nothing to
		// clean up.
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a confirmable state"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}

	h.Metrics.CheckInsCompleted.Inc()
	b, err := h.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"status": "ARRIVED"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reference": b.Reference,
		"status":    b.Status,
		"tables":    b.TableIDs,
	})
}
