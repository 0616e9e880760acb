package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brlvenue/table-reservation/internal/repository"
)

// riskHistoryWindow bounds how far back the risk score looks.
const riskHistoryWindow = 365 * 24 * time.Hour

// CustomerRisk handles GET /v1/admin/customers/:id/risk.  Admin only.
func (h *BookingHandler) CustomerRisk(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || customerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}

	ctx := c.Request().Context()
	cust, err := h.Customers.GetByID(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	now := time.Now().UTC()
	history, err := h.Bookings.History(ctx, customerID, now.Add(-riskHistoryWindow), now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "history lookup failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"customer_id": cust.ID,
		"tier":        cust.Tier,
		"risk_score":  h.Enforcer.RiskScore(history, now),
		"bookings":    len(history),
	})
}

// overridePreviewRequest asks what an override would grant without
// creating a booking.
type overridePreviewRequest struct {
	CustomerID       uint64 `json:"customer_id" validate:"required"`
	Reason           string `json:"reason" validate:"required"`
	AdditionalTables int    `json:"additional_tables" validate:"required,min=1"`
}

// OverridePreview handles POST /v1/admin/overrides/preview.  Admin
// only.  The same validation runs inline during booking creation; this
// endpoint lets staff confirm an override before taking payment.
func (h *BookingHandler) OverridePreview(c echo.Context) error {
	var req overridePreviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id, reason and additional_tables are required"})
	}

	cust, err := h.Customers.GetByID(c.Request().Context(), req.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	decision, err := h.Enforcer.AdminOverride(cust, req.Reason, req.AdditionalTables)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, decision)
}

// ListCustomerBookings handles GET /v1/admin/customers/:id/bookings.
func (h *BookingHandler) ListCustomerBookings(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || customerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	bookings, err := h.Bookings.ListByCustomer(c.Request().Context(), customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}
