package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/config"
	dbRedis "github.com/kailas-cloud/culturai/internal/db/redis"
	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/geo"
	logpkg "github.com/kailas-cloud/culturai/internal/logger"
	"github.com/kailas-cloud/culturai/internal/metrics"
	"github.com/kailas-cloud/culturai/internal/repository/embcache"
	"github.com/kailas-cloud/culturai/internal/repository/vectorindex"
	chiTransport "github.com/kailas-cloud/culturai/internal/transport/chi"
	openaiT "github.com/kailas-cloud/culturai/internal/transport/openai"
	"github.com/kailas-cloud/culturai/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/culturai/internal/usecase/embedding"
	filteruc "github.com/kailas-cloud/culturai/internal/usecase/filter"
	"github.com/kailas-cloud/culturai/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/culturai/internal/usecase/health"
	"github.com/kailas-cloud/culturai/internal/usecase/ingest"
	intentuc "github.com/kailas-cloud/culturai/internal/usecase/intent"
	"github.com/kailas-cloud/culturai/internal/usecase/retrieval"
	"github.com/kailas-cloud/culturai/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting culturai API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_dir", cfg.Index.Dir),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterLLMMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := context.Background()

	// Embedding cache is optional: without it every text hits the provider.
	cache := connectCache(ctx, cfg.Cache, logger)
	if cache != nil {
		defer cache.Close()
	}

	base := openaiT.NewEmbedder(&openaiT.Config{
		APIKey:     cfg.Embedding.Provider.APIKey,
		BaseURL:    cfg.Embedding.Provider.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider.Name,
	}, logger)

	docEmbedder := buildEmbedder(base, cfg, cfg.Embedding.DocumentInstruction, cache, logger)
	queryEmbedder := buildEmbedder(base, cfg, cfg.Embedding.QueryInstruction, cache, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider.Name),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", cache != nil),
	)

	// Completion chain: OpenAI chat -> circuit breaker
	chat := openaiT.NewChat(&openaiT.Config{
		APIKey:   cfg.Chat.Provider.APIKey,
		BaseURL:  cfg.Chat.Provider.BaseURL,
		Model:    cfg.Chat.Model,
		Provider: cfg.Chat.Provider.Name,
	}, logger)
	completer := completion.NewBreakerCompleter(chat, completion.BreakerSettings{
		Name:             "chat-completion",
		MaxRequests:      cfg.Chat.Breaker.MaxRequests,
		Interval:         time.Duration(cfg.Chat.Breaker.IntervalSec) * time.Second,
		Timeout:          time.Duration(cfg.Chat.Breaker.TimeoutSec) * time.Second,
		FailureThreshold: cfg.Chat.Breaker.FailureThreshold,
	}, logger)

	index := vectorindex.New(docEmbedder, queryEmbedder,
		vectorindex.WithDir(cfg.Index.Dir),
		vectorindex.WithDimensions(cfg.Embedding.Dimensions),
		vectorindex.WithBatchSize(cfg.Index.EmbedBatchSize),
		vectorindex.WithConcurrency(cfg.Index.EmbedConcurrency),
		vectorindex.WithLogger(logger),
	)
	ingestSvc := ingest.New(index, logger)

	loaded, err := index.Load()
	if err != nil {
		logger.Fatal("Failed to load index", zap.String("dir", cfg.Index.Dir), zap.Error(err))
	}
	switch {
	case loaded:
		logger.Info("Index loaded", zap.Int("events", index.Count()))
	case cfg.Index.EventsFile != "":
		rep, err := ingestSvc.IngestFile(ctx, cfg.Index.EventsFile)
		if err != nil {
			// Serve anyway: events can still be pushed through POST /v1/events.
			logger.Error("Initial ingestion failed", zap.String("file", cfg.Index.EventsFile), zap.Error(err))
		} else {
			logger.Info("Initial ingestion done", zap.Int("added", rep.Added), zap.Bool("persisted", rep.Persisted))
		}
	default:
		logger.Warn("No index found and no events file configured, starting empty")
	}

	gazetteer := geo.DefaultGazetteer()
	logger.Info("Gazetteer loaded", zap.Int("cities", gazetteer.Len()))
	extractor := intentuc.NewExtractor(gazetteer, completer, logger,
		intentuc.WithParams(domain.CompletionParams{
			Temperature: cfg.Chat.ReformulateTemperature,
			MaxTokens:   cfg.Chat.ReformulateMaxTokens,
		}),
		intentuc.WithTimeout(time.Duration(cfg.Chat.ReformulateTimeoutSec)*time.Second),
	)
	retrievalSvc := retrieval.New(index, extractor, filteruc.NewEngine(gazetteer, logger), retrieval.Config{
		DefaultTopK: cfg.Index.DefaultTopK,
		MaxTopK:     cfg.Index.MaxTopK,
		RadiusKm:    cfg.Geo.DefaultRadiusKm,
	}, logger)
	generationSvc := generation.New(completer, domain.CompletionParams{
		Temperature: cfg.Chat.GenerateTemperature,
		MaxTokens:   cfg.Chat.GenerateMaxTokens,
	}, time.Duration(cfg.Chat.GenerateTimeoutSec)*time.Second, logger)

	// Pass a nil interface (not a typed nil pointer) when the cache is off.
	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	healthSvc := healthuc.New(index, cachePinger, base, completer)

	server := chiTransport.NewServer(retrievalSvc, generationSvc, ingestSvc, index, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// connectCache opens the Redis embedding cache, or returns nil when it is not
// configured or not reachable.
func connectCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) *dbRedis.Store {
	if len(cfg.Addrs) == 0 {
		return nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		logger.Warn("Embedding cache disabled", zap.Error(err))
		return nil
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Embedding cache not ready, continuing without it", zap.Error(err))
		store.Close()
		return nil
	}
	logger.Info("Connected to embedding cache")
	return store
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder,
	cfg config.Config,
	instruction string,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cache != nil {
		namespace := fmt.Sprintf("%s:%s:%d",
			cfg.Embedding.Provider.Name, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		opts := []embcache.Option{embcache.WithMetrics(metrics.EmbeddingCacheTotal)}
		if cfg.Cache.TTLHours > 0 {
			opts = append(opts, embcache.WithTTL(time.Duration(cfg.Cache.TTLHours)*time.Hour))
		}
		embedder = embcache.New(base, cache, namespace, logger, opts...)
	}

	// Instrumented (usage + metrics + batch chunking)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider.Name, cfg.Embedding.Model, cfg.Index.EmbedBatchSize, logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("embedding_tokens", ww.Header().Get("X-Embedding-Tokens")),
				zap.String("completion_tokens", ww.Header().Get("X-Completion-Tokens")),
			)
		})
	}
}
