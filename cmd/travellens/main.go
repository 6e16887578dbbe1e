package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/travellens-cloud/travellens/internal/config"
	dbRedis "github.com/travellens-cloud/travellens/internal/db/redis"
	logpkg "github.com/travellens-cloud/travellens/internal/logger"
	"github.com/travellens-cloud/travellens/internal/metrics"
	bookmarkrepo "github.com/travellens-cloud/travellens/internal/repository/bookmark"
	historyrepo "github.com/travellens-cloud/travellens/internal/repository/history"
	chiTransport "github.com/travellens-cloud/travellens/internal/transport/chi"
	"github.com/travellens-cloud/travellens/internal/transport/recognition"
	"github.com/travellens-cloud/travellens/internal/transport/wikipedia"
	bookmarkuc "github.com/travellens-cloud/travellens/internal/usecase/bookmark"
	healthuc "github.com/travellens-cloud/travellens/internal/usecase/health"
	historyuc "github.com/travellens-cloud/travellens/internal/usecase/history"
	lookupuc "github.com/travellens-cloud/travellens/internal/usecase/lookup"
	"github.com/travellens-cloud/travellens/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting travellens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("recognition_endpoint", cfg.Recognition.Endpoint),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterPipelineMetrics()

	// External service clients
	recognizer := recognition.NewClient(&recognition.Config{
		Endpoint:   cfg.Recognition.Endpoint,
		Timeout:    time.Duration(cfg.Recognition.TimeoutSec) * time.Second,
		HealthPath: cfg.Recognition.HealthPath,
		Logger:     logger,
	})
	enricher := wikipedia.NewClient(&wikipedia.Config{
		SummaryBaseURL:   cfg.Enrichment.SummaryBaseURL,
		Timeout:          time.Duration(cfg.Enrichment.TimeoutSec) * time.Second,
		UserAgent:        cfg.Enrichment.UserAgent,
		PlaceholderImage: cfg.Enrichment.PlaceholderImage,
		Logger:           logger,
	})

	// Repositories
	historyRepo := historyrepo.New(store, cfg.Storage.KeyPrefix)
	bookmarkRepo := bookmarkrepo.New(store, cfg.Storage.KeyPrefix)

	// Use case services
	ledger := historyuc.New(historyRepo, logger).WithRetentionLimit(cfg.History.RetentionLimit)
	bookmarks := bookmarkuc.New(bookmarkRepo)
	lookups := lookupuc.New(recognizer, enricher, ledger, logger)
	health := healthuc.New(store, recognizer)

	// HTTP server
	server := chiTransport.NewServer(
		lookups, ledger, bookmarks, health, int64(cfg.HTTP.MaxUploadBytes), logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.Tokens))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
