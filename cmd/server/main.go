package main // Entry point package

import (
	"context"
	"log" // Logging library

	"github.com/joho/godotenv"                     // Loads .env files in local development
	"github.com/labstack/echo/v4"                  // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Built-in echo middleware (logger, recover)
	"go.uber.org/zap"                              // Structured logging

	"github.com/brlvenue/table-reservation/internal/booking"    // Admission control components
	"github.com/brlvenue/table-reservation/internal/config"     // Internal config loader
	"github.com/brlvenue/table-reservation/internal/database"   // Database connection helper
	"github.com/brlvenue/table-reservation/internal/handler"    // HTTP handlers
	"github.com/brlvenue/table-reservation/internal/metrics"    // Prometheus counters
	"github.com/brlvenue/table-reservation/internal/notify"     // SMTP confirmation mailer
	"github.com/brlvenue/table-reservation/internal/payment"    // Refund gateway client
	"github.com/brlvenue/table-reservation/internal/queue"      // RabbitMQ consumer
	"github.com/brlvenue/table-reservation/internal/repository" // Data access layer
	"github.com/brlvenue/table-reservation/internal/router"     // Internal router setup
	queue_publisher "github.com/brlvenue/table-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load()          // Load environment config
	policy := config.LoadPolicy() // Load booking policy knobs

	logger, err := zap.NewProduction() // Structured logger for the whole process
	if cfg.Env == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName) // Open MySQL pool
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; rate limit and cache degrade off
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and response cache disabled")
	}

	// Repositories share the one pool.
	customers := repository.NewCustomerRepo(db)
	bookings := repository.NewBookingRepo(db)
	tables := repository.NewTableRepo(db)
	checkIns := repository.NewCheckInRepo(db)

	combos, err := repository.NewCombinationRepo(db).LoadAll(context.Background()) // Combination layout is fixed; load once at boot
	if err != nil {
		logger.Fatal("combination load failed", zap.Error(err))
	}

	var gateway booking.RefundGateway
	if pc := payment.NewClient(cfg.PaymentGatewayURL, cfg.PaymentTimeout, logger); pc != nil {
		gateway = pc // Unset gateway URL leaves refunds deferred to manual processing
	}

	h := &handler.BookingHandler{
		Customers:    customers,
		Bookings:     bookings,
		Tables:       tables,
		CheckIns:     checkIns,
		Enforcer:     booking.NewEnforcer(customers, bookings, policy, logger),
		Resolver:     booking.NewResolver(combos, tables, policy),
		Generator:    booking.NewGenerator(bookings, nil, policy.MaxReferenceAttempts),
		Cancellation: booking.NewCancellationPolicy(bookings, gateway, policy, logger),
		Publisher:    queue_publisher.New(cfg.AMQPURL, logger),
		Policy:       policy,
		Metrics:      metrics.New(),
		Log:          logger,
	}

	// Confirmation and cancellation emails are driven off the queue so a
	// slow SMTP relay never holds up an admission response.
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, logger)
	go queue.NewConsumer(cfg.AMQPURL, mailer, logger).Start()

	e := echo.New()                      // Create Echo instance
	e.Use(echomw.Recover())              // Convert panics into 500s
	e.Use(echomw.Logger())               // Request access log
	e.Validator = handler.NewValidator() // Request validation via validator tags
	router.RegisterRoutes(e)            // Health and metrics
	router.RegisterPublic(e, h, rdb, cfg.JWTSecret, config.LoadRateLimitConfig(), config.LoadCacheConfig())
	router.RegisterStaff(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
