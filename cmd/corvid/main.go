package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/corvid-ai/corvid/internal/config"
	dbRedis "github.com/corvid-ai/corvid/internal/db/redis"
	"github.com/corvid-ai/corvid/internal/domain"
	logpkg "github.com/corvid-ai/corvid/internal/logger"
	"github.com/corvid-ai/corvid/internal/metrics"
	conversationrepo "github.com/corvid-ai/corvid/internal/repository/conversation"
	"github.com/corvid-ai/corvid/internal/repository/embcache"
	sourcerepo "github.com/corvid-ai/corvid/internal/repository/source"
	vectorrepo "github.com/corvid-ai/corvid/internal/repository/vector"
	chiTransport "github.com/corvid-ai/corvid/internal/transport/chi"
	openaiTransport "github.com/corvid-ai/corvid/internal/transport/openai"
	healthuc "github.com/corvid-ai/corvid/internal/usecase/health"
	indexeruc "github.com/corvid-ai/corvid/internal/usecase/indexer"
	orchestratoruc "github.com/corvid-ai/corvid/internal/usecase/orchestrator"
	retrievaluc "github.com/corvid-ai/corvid/internal/usecase/retrieval"
	"github.com/corvid-ai/corvid/internal/version"
)

func main() {
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

	logger.Info("Starting corvid API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	// Embedder chain: OpenAI-compatible provider behind the store-backed cache.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, cfg.Index.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	chatModel := openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
		APIKey:     cfg.Chat.APIKey,
		BaseURL:    cfg.Chat.BaseURL,
		Model:      cfg.Chat.Model,
		Timeout:    time.Duration(cfg.Chat.TimeoutSec) * time.Second,
		MaxRetries: cfg.Chat.MaxRetries,
		Logger:     logger,
	})

	// Repositories
	vectorRepo := vectorrepo.New(store, cfg.Index.KeyPrefix, cfg.Embedding.Dimensions, domain.MetricCosine)
	conversationRepo := conversationrepo.New(store, cfg.Index.KeyPrefix,
		time.Duration(cfg.Index.LockTTLSec)*time.Second)
	sourceRepo := sourcerepo.New(store, cfg.Index.KeyPrefix)

	// A missing index is not fatal at boot: /v1/reindex builds it, and the
	// health endpoint reports degraded until then.
	switch err := vectorRepo.Open(ctx); {
	case err == nil:
		logger.Info("Vector index opened")
	case errors.Is(err, domain.ErrIndexUnavailable):
		logger.Warn("Vector index not built yet; retrieval disabled until reindex")
	default:
		logger.Fatal("Failed to open vector index", zap.Error(err))
	}

	splitter, err := domain.NewSplitter(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid splitter configuration", zap.Error(err))
	}

	// Use case services
	retrievalSvc := retrievaluc.New(embedder, vectorRepo, cfg.Chat.TopK, logger)
	indexerSvc := indexeruc.New(indexeruc.Config{
		Splitter:     splitter,
		BatchSize:    cfg.Embedding.BatchSize,
		RateLimitRPM: cfg.Embedding.RateLimitRPM,
		MaxRetries:   cfg.Embedding.MaxRetries,
	}, embedder, vectorRepo, sourceRepo, logger)
	orchestratorSvc := orchestratoruc.New(orchestratoruc.Config{
		Persona: cfg.Chat.Persona,
		MaxHops: cfg.Chat.MaxHops,
	}, chatModel, retrievalSvc, conversationRepo, logger)
	healthSvc := healthuc.New(store, baseEmbedder, vectorRepo)

	server := chiTransport.NewServer(orchestratorSvc, indexerSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

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
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
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
