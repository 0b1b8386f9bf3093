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

	"github.com/courtdata/formdex/internal/config"
	"github.com/courtdata/formdex/internal/crawler"
	"github.com/courtdata/formdex/internal/domain"
	logpkg "github.com/courtdata/formdex/internal/logger"
	"github.com/courtdata/formdex/internal/metrics"
	"github.com/courtdata/formdex/internal/repository/embcache"
	formsrepo "github.com/courtdata/formdex/internal/repository/forms"
	"github.com/courtdata/formdex/internal/storage/postgres"
	storageRedis "github.com/courtdata/formdex/internal/storage/redis"
	chiTransport "github.com/courtdata/formdex/internal/transport/chi"
	openaiEmb "github.com/courtdata/formdex/internal/transport/openai"
	"github.com/courtdata/formdex/internal/transport/rpc"
	askuc "github.com/courtdata/formdex/internal/usecase/ask"
	crawluc "github.com/courtdata/formdex/internal/usecase/crawl"
	guidanceuc "github.com/courtdata/formdex/internal/usecase/guidance"
	healthuc "github.com/courtdata/formdex/internal/usecase/health"
	searchuc "github.com/courtdata/formdex/internal/usecase/search"
	"github.com/courtdata/formdex/internal/version"
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

	logger.Info("Starting formdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	ctx := context.Background()

	// Postgres pool with pgvector types registered per connection
	pool, err := postgres.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.WaitForReady(ctx, pool, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			logger.Fatal("Migrations failed", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	// Register embedding metrics explicitly (no init())
	metrics.Register()

	// Optional Redis embedding cache
	var cache *storageRedis.KV
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = storageRedis.New(storageRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to connect to embedding cache", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("Embedding cache connected", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	embedder := buildEmbedder(cfg, cache, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repository and use case services
	repo := formsrepo.New(pool)

	searchSvc := searchuc.New(repo, embedder, searchuc.Options{
		MaxResults:     cfg.Search.MaxResults,
		DefaultResults: cfg.Search.DefaultResults,
		Threshold:      cfg.Search.SimilarityThreshold,
		Source:         cfg.Search.DefaultSource,
		Timeout:        time.Duration(cfg.Search.TimeoutSec) * time.Second,
	})

	guidanceSvc, err := guidanceuc.New()
	if err != nil {
		logger.Fatal("Failed to load guidance table", zap.Error(err))
	}

	askSvc := askuc.New(guidanceSvc, searchSvc, cfg.Search.DefaultResults, logger)

	crawlSvc := crawluc.New(
		crawler.New(crawler.Config{
			BaseURL:  cfg.Crawl.BaseURL,
			MaxDepth: cfg.Crawl.MaxDepth,
			Logger:   logger,
		}),
		embedder,
		repo,
		crawluc.Options{
			Source:        cfg.Crawl.Source,
			MaxConcurrent: cfg.Crawl.MaxConcurrent,
		},
		logger,
	)

	healthSvc := healthuc.New(repo, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(askSvc, searchSvc, crawlSvc, repo, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Method(http.MethodPost, "/rpc", rpc.NewHandler(searchSvc, logger))

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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached
func buildEmbedder(cfg config.Config, cache *storageRedis.KV, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	if cache == nil {
		return base
	}
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	return embcache.New(base, cache, ttl, metrics.EmbeddingCacheTotal, logger)
}

// embeddingHealthChecker exposes the provider probe behind the health service
// interface regardless of how deep the decorator chain is.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
			ctx := logpkg.WithContext(r.Context(), reqLogger)

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
