package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brlvenue/table-reservation/internal/config"
	"github.com/brlvenue/table-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/brlvenue/table-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  It exposes the health check and the Prometheus
// scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the unauthenticated guest-facing endpoints:
// booking creation, cancellation, reference validation and availability
// lookups.  Availability responses are cached; booking creation is rate
// limited per client.
func RegisterPublic(e *echo.Echo, b *handler.BookingHandler, rdb *redis.Client, jwtSecret string, rl config.RateLimitConfig, cc config.CacheConfig) {
	// Booking admission is the write-heavy path, so the Redis token bucket
	// protects it.  Cancellation shares the same bucket: both mutate the
	// same per-day ledger.  The optional JWT parse is what lets an admin's
	// override request carry its role claim through a guest endpoint.
	limited := e.Group("/v1/bookings")
	limited.Use(middleware.OptionalJWTAuth(jwtSecret))
	if rdb != nil {
		limited.Use(middleware.NewTokenBucket(rl, rdb))
	}
	limited.POST("", b.CreateBooking)
	limited.DELETE("/:reference", b.CancelBooking)
	limited.GET("/:reference/validate", b.ValidateReference)

	// Availability reads are cacheable for short windows.  The cache key
	// includes the full query string, so party size and slot variants are
	// cached independently.
	avail := e.Group("/v1")
	if rdb != nil {
		avail.Use(middleware.NewRedisCache(cc, rdb))
	}
	avail.GET("/combinations/eligibility", b.CombinationEligibility)
	avail.GET("/combinations/availability", b.CombinationAvailability)
	avail.GET("/combinations/partial", b.PartialCombinationAvailability)
	avail.GET("/combinations/quote", b.CombinationQuote)
	avail.GET("/tables/:id/validate", b.ValidateTableBooking)
}

// RegisterStaff registers endpoints for venue staff and administrators.
// All routes require a valid access token; admin-only routes additionally
// require the ADMIN role.
func RegisterStaff(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	staff := e.Group("/v1")
	staff.Use(middleware.JWTAuth(jwtSecret))
	staff.Use(middleware.RequireRole("STAFF", "ADMIN"))
	staff.POST("/check-in", b.CheckIn)
	staff.GET("/bookings/:reference", b.GetBooking)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.GET("/customers/:id/risk", b.CustomerRisk)
	admin.GET("/customers/:id/bookings", b.ListCustomerBookings)
	admin.POST("/overrides/preview", b.OverridePreview)
}
