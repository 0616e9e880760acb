package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/config"
	"github.com/brlvenue/table-reservation/internal/metrics"
	"github.com/brlvenue/table-reservation/internal/repository"
	queue_publisher "github.com/brlvenue/table-reservation/internal/service"
)

// Validator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns the echo validator used by the server.
func NewValidator() *Validator { return &Validator{validate: validator.New()} }

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error { return v.validate.Struct(i) }

// BookingHandler groups the collaborators the booking endpoints need.
// The admission-control components hold the business rules; the
// handler's job is binding, error translation and the retry-once
// discipline around lost write races.
type BookingHandler struct {
	Customers    *repository.CustomerRepo
	Bookings     *repository.BookingRepo
	Tables       *repository.TableRepo
	CheckIns     *repository.CheckInRepo
	Enforcer     *booking.Enforcer
	Resolver     *booking.Resolver
	Generator    *booking.Generator
	Cancellation *booking.CancellationPolicy
	Publisher    *queue_publisher.Publisher
	Policy       config.Policy
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

// role extracts the role claim set by the JWT middleware, empty when
// the request is unauthenticated.
func role(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}

// subject extracts the token subject set by the JWT middleware, used
// to attribute admin actions in the audit trail.
func subject(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}
