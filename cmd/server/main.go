package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/config"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/database/memstore"
	"github.com/staybook/settlement-backend/internal/handlers"
	"github.com/staybook/settlement-backend/internal/metrics"
	"github.com/staybook/settlement-backend/internal/middleware"
	"github.com/staybook/settlement-backend/internal/notify"
	"github.com/staybook/settlement-backend/internal/services"
	"github.com/staybook/settlement-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

const sweepLeaseKey = "settlement:sweep:lease"

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting StayBook settlement backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Store
	var store database.Store
	var db *sqlx.DB
	switch cfg.Server.Store {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		mem := memstore.New()
		if cfg.Server.SeedDemo {
			mem.SeedDemo(time.Now())
			logger.WithFields(logrus.Fields{
				"room_type_id": memstore.DemoRoomTypeID,
				"meal_plan_id": memstore.DemoMealPlanID,
				"user_id":      memstore.DemoUserID,
				"promo_code":   memstore.DemoPromoCode,
			}).Warn("Memory store seeded with demo catalog")
		} else {
			logger.Warn("Memory store has no room types or users, bookings will fail until seeded")
		}
		store = mem
	default:
		logger.Info("Connecting to database...")
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(context.Background(), db, logger); err != nil {
				logger.Fatalf("Failed to run migrations: %v", err)
			}
		}
		store = database.NewPostgresStore(db, logger)
	}

	// Sweep lease (optional)
	var lease services.SweepLease
	if cfg.Redis.Enabled {
		redisClient := database.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
		if err := database.PingRedis(context.Background(), redisClient); err != nil {
			logger.WithError(err).Warn("Redis unreachable, sweeping without a lease")
		} else {
			lease = services.NewRedisSweepLease(redisClient, sweepLeaseKey, cfg.Settlement.SweepLeaseTTL)
			logger.Info("✓ Redis sweep lease enabled")
		}
	}

	// Notifications
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.RabbitMQ.Enabled {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unreachable, notifications go to the log")
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
			logger.Infof("✓ Publishing booking events to queue %s", cfg.RabbitMQ.Queue)
		}
	}
	events := notify.NewDispatcher(notifier, logger)

	metrics.Register()

	// Initialize services
	logger.Info("Initializing services...")
	clock := services.SystemClock
	retry := services.RetryPolicy{
		Attempts: cfg.Settlement.LockRetryAttempts,
		Backoff:  cfg.Settlement.LockRetryBackoff,
	}
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	promoService := services.NewPromoService(logger)
	pricingService := services.NewPricingFreezeService(store.Catalog(), promoService, logger)
	inventoryService := services.NewInventoryService(cfg.Settlement.HoldDuration, logger)
	walletService := services.NewWalletService(store, retry, clock, logger)
	gateway := services.NewChargeGateway(&cfg.Payment, cfg.Settlement.Currency, logger)
	orchestrator := services.NewBookingOrchestratorService(
		store,
		pricingService,
		promoService,
		inventoryService,
		walletService,
		gateway,
		events,
		clock,
		services.BookingOrchestratorConfig{
			Retry:     retry,
			Currency:  cfg.Settlement.Currency,
			MaxNights: cfg.Settlement.MaxStayNights,
		},
		logger,
	)

	sweeper := services.NewReservationSweepService(store.Bookings(), orchestrator, lease, cfg.Settlement.SweepBatchSize, clock, logger)
	cronService := services.NewCronService(sweeper, cfg.Settlement.SweepSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - Reservation expiry sweep enabled")

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.Routes{
		Settlement: handlers.NewSettlementHandler(orchestrator, logger),
		Wallet:     handlers.NewWalletHandler(walletService, logger),
		Admin:      handlers.NewAdminHandler(cronService, orchestrator, logger),
		JWT:        jwtService,
		Logger:     logger,
	}.Register(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second, // covers the payment gateway timeout
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
