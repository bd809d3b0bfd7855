package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	"github.com/aditya/go-dispatch/internal/config"
	"github.com/aditya/go-dispatch/internal/database"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/handler"
	"github.com/aditya/go-dispatch/internal/logging"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelicEnabled && cfg.NewRelicLicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			logger.Warn("New Relic connection timeout", "error", err)
		} else {
			logger.Info("New Relic connected")
		}
	}

	ctx := context.Background()

	// Storage
	var (
		gateway repository.Gateway
		health  = map[string]func(context.Context) error{}
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		gateway = repository.NewMemoryGateway()
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("connected to PostgreSQL")

		if cfg.RunMigrations {
			if err := database.Migrate(ctx, db.DB); err != nil {
				logger.Error("failed to migrate schema", "error", err)
				os.Exit(1)
			}
		}
		gateway = repository.NewPostgresGateway(db.DB)
	}
	health["database"] = gateway.Ping

	// Redis backs the available-rides cache, rate limiting and idempotency.
	var (
		availableCache cache.AvailableRidesCache
		rateLimiter    *middleware.RateLimiter
		idempotency    *middleware.IdempotencyMiddleware
	)
	if cfg.RedisEnabled {
		rdb, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		logger.Info("connected to Redis")

		availableCache = cache.NewAvailableRidesCache(rdb.Client, cfg.AvailableRidesCacheTTL)
		rateLimiter = middleware.NewRateLimiter(rdb.Client, cfg.RateLimitRequests, cfg.RateLimitWindow, logger)
		idempotency = middleware.NewIdempotencyMiddleware(rdb.Client, logger)
		health["redis"] = rdb.Health
	}

	// Ride events
	var publisher events.Publisher = events.NopPublisher{}
	switch cfg.EventsBackend {
	case config.EventsKafka:
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("publishing ride events to Kafka", "topic", cfg.KafkaTopic)
	case config.EventsRabbitMQ:
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		publisher = rp
		logger.Info("publishing ride events to RabbitMQ", "exchange", cfg.RabbitMQExchange)
	}
	defer publisher.Close()

	// Services
	clock := service.SystemClock()
	fares := service.NewFareEstimator(cfg.FareBase, cfg.FarePerKm)
	dispatch := service.NewDispatchService(gateway, fares, publisher, availableCache, clock, logger)
	directory := service.NewRideDirectory(gateway, availableCache, logger)
	users := service.NewUserService(gateway, clock, logger)
	payments := service.NewPaymentService(gateway, publisher, clock, logger)

	// Handlers
	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	if auth.DevMode() {
		logger.Warn("JWT_SECRET not set; trusting X-Actor-ID and X-Actor-Role headers")
	}
	userHandler := handler.NewUserHandler(users, directory, payments, auth, logger)
	rideHandler := handler.NewRideHandler(dispatch, directory, logger)
	driverHandler := handler.NewDriverHandler(dispatch, payments, logger)
	paymentHandler := handler.NewPaymentHandler(payments, logger)
	sseHandler := handler.NewSSEHandler(directory, cfg.SSEPollInterval, logger)

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader, middleware.ActorIDHeader, middleware.ActorRoleHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.NewRelic(nrApp))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := map[string]string{}, http.StatusOK
		for name, check := range health {
			if err := check(r.Context()); err != nil {
				status[name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "up"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{"status": http.StatusText(code), "services": status})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Identify)
		if rateLimiter != nil {
			r.Use(rateLimiter.Handler)
		}
		if idempotency != nil {
			r.Use(idempotency.Handler)
		}

		userHandler.RegisterRoutes(r)
		driverHandler.RegisterRoutes(r)
		r.Route("/rides", func(r chi.Router) {
			rideHandler.RegisterRoutes(r)
			paymentHandler.RegisterRoutes(r)
			sseHandler.RegisterRoutes(r)
		})
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No write timeout: /rides/{id}/track streams for the life of a ride.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "storage", cfg.StorageBackend, "events", cfg.EventsBackend)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
