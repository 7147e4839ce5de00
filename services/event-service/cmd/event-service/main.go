package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/agreedtime/libs/config"
	"github.com/md-rashed-zaman/agreedtime/libs/db"
	"github.com/md-rashed-zaman/agreedtime/libs/httpx"
	"github.com/md-rashed-zaman/agreedtime/libs/kafkax"
	otelx "github.com/md-rashed-zaman/agreedtime/libs/otel"
	"github.com/md-rashed-zaman/agreedtime/libs/runtime"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/cleanup"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/handlers"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/outbox"
	"github.com/md-rashed-zaman/agreedtime/services/event-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "event-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewEventRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:     config.String("KAFKA_BROKERS", ""),
		TopicPrefix: config.String("KAFKA_TOPIC_PREFIX", "agreedtime"),
		PollEvery:   2 * time.Second,
		BatchSize:   50,
	})
	go outboxPublisher.Run(ctx)

	retention := time.Duration(config.Int("EVENT_RETENTION_DAYS", 7)) * 24 * time.Hour
	cleanupJob := cleanup.NewJob(repo, logger, config.String("CLEANUP_SCHEDULE", "@hourly"), retention)
	go func() {
		if err := cleanupJob.Start(ctx); err != nil {
			logger.Error("cleanup job failed to start", "err", err)
		}
	}()

	eventHandler := handlers.NewEventHandler(repo, outboxRepo, logger, config.Int("MAX_PARTICIPANTS", 10))

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := strings.TrimSpace(config.String("KAFKA_BROKERS", "")); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	mux.HandleFunc("POST /api/events", eventHandler.Create)
	mux.HandleFunc("POST /api/events/batch-check", eventHandler.BatchCheck)
	mux.HandleFunc("GET /api/events/{public_token}", eventHandler.Get)
	mux.HandleFunc("POST /api/events/{public_token}/availability", eventHandler.SubmitAvailability)
	mux.HandleFunc("GET /api/events/{public_token}/results", eventHandler.Results)
	mux.HandleFunc("GET /api/events/{public_token}/participants/{participant_token}", eventHandler.GetParticipant)
	mux.HandleFunc("PUT /api/events/{public_token}/participants/{participant_token}", eventHandler.UpdateParticipant)
	mux.HandleFunc("GET /api/events/organizer/{organizer_token}", eventHandler.OrganizerView)
	mux.HandleFunc("POST /api/events/{organizer_token}/close", eventHandler.Close)

	bodyLimit := int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))
	requestTimeout := time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithSecurityHeaders,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "event-service")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
