package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// parseSlot reads the ?at= query parameter as RFC 3339.
func parseSlot(c echo.Context) (time.Time, bool) {
	at, err := time.Parse(time.RFC3339, c.QueryParam("at"))
	if err != nil {
		return time.Time{}, false
	}
	return at.UTC(), true
}

// CombinationEligibility handles GET /v1/combinations/eligibility.
// Below the party-size threshold individual tables are recommended
// and no combination is offered.
func (h *BookingHandler) CombinationEligibility(c echo.Context) error {
	partySize, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil || partySize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid party_size"})
	}
	return c.JSON(http.StatusOK, h.Resolver.Eligibility(partySize))
}

// CombinationAvailability handles GET /v1/combinations/availability.
func (h *BookingHandler) CombinationAvailability(c echo.Context) error {
	partySize, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil || partySize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid party_size"})
	}
	at, ok := parseSlot(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid at, expected RFC3339"})
	}
	avail, err := h.Resolver.CombinedAvailability(c.Request().Context(), at, partySize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	return c.JSON(http.StatusOK, avail)
}

// CombinationQuote handles GET /v1/combinations/quote.  Flat fee plus
// per-table base pricing, premium multiplier when any member table is
// premium.
func (h *BookingHandler) CombinationQuote(c echo.Context) error {
	partySize, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil || partySize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid party_size"})
	}
	return c.JSON(http.StatusOK, h.Resolver.Costs(partySize))
}

// PartialCombinationAvailability handles GET /v1/combinations/partial.
// The partial state feeds "almost available" messaging only; it is
// never offered as a bookable combination.
func (h *BookingHandler) PartialCombinationAvailability(c echo.Context) error {
	at, ok := parseSlot(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid at, expected RFC3339"})
	}
	partial, err := h.Resolver.PartialAvailability(c.Request().Context(), at)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	return c.JSON(http.StatusOK, partial)
}

// ValidateTableBooking handles GET /v1/tables/:id/validate.  It
// rejects single-table booking of a table tied up by an active
// combination for the slot.
func (h *BookingHandler) ValidateTableBooking(c echo.Context) error {
	tableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	at, ok := parseSlot(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid at, expected RFC3339"})
	}
	decision, err := h.Resolver.ValidateIndividualBooking(c.Request().Context(), tableID, at)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation failed"})
	}
	return c.JSON(http.StatusOK, decision)
}
