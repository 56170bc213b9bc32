package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cat-backend/internal/cache"
	"cat-backend/internal/config"
	"cat-backend/internal/handlers"
	"cat-backend/internal/http"
	"cat-backend/internal/ledger"
	"cat-backend/internal/llm"
	"cat-backend/internal/rag"
	"cat-backend/internal/service"
	"cat-backend/internal/storage"
	"cat-backend/internal/vectorstore"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ledger database
	db, err := storage.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "driver", cfg.DBDriver)

	queryRepo := storage.NewQueryRepo(db, cfg.DBDriver)
	queryLedger := ledger.New(queryRepo, ledger.Options{
		Workers:      cfg.LedgerWorkers,
		QueueSize:    cfg.LedgerQueueSize,
		MaxAttempts:  cfg.LedgerMaxAttempts,
		RetryDelay:   cfg.LedgerRetryDelay,
		WriteTimeout: cfg.LedgerWriteTimeout,
		Logger:       logger,
	})

	// Vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL, vectorstore.QdrantOptions{
		APIKey:         cfg.QdrantAPIKey,
		InferenceModel: cfg.QdrantInferenceModel,
		VectorName:     cfg.QdrantVectorName,
	})
	if err != nil {
		return fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	defer func() {
		_ = vectorStore.Close()
	}()
	slog.Info("Qdrant client ready", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)

	// LLM
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	llmClient.MaxTokens = cfg.LLMMaxTokens
	llmClient.Temperature = cfg.LLMTemperature
	template := cfg.LLMPromptTemplate
	if template == "" {
		template = rag.DefaultPromptTemplate
	}
	runtime, err := rag.NewRuntime(cfg.LLMModel, template)
	if err != nil {
		return fmt.Errorf("invalid LLM settings: %w", err)
	}
	var catalog handlers.ModelCatalog
	if cfg.LLMValidateModel {
		catalog = llmClient
	}

	reranker, err := rag.NewReranker(cfg.Reranker)
	if err != nil {
		return err
	}

	responseCache, closeCache, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	queryService := service.NewQueryService(service.QueryDeps{
		Retriever: rag.NewRetriever(vectorStore, cfg.MaxDocLimit),
		Reranker:  reranker,
		Answerer: rag.NewAnswerer(llmClient, rag.AnswererOptions{
			Timeout: cfg.LLMTimeout,
			Context: rag.ContextOptions{
				IncludeMetadata: cfg.LLMContextMetadata,
				MaxChars:        cfg.LLMMaxContextChars,
			},
		}),
		Settings: runtime,
		Ledger:   queryLedger,
		Store:    queryRepo,
		Cache:    responseCache,
	}, service.QueryOptions{
		DefaultCollection: cfg.QdrantCollection,
		DefaultLimit:      cfg.DocLimit,
		VectorStoreName:   "qdrant",
		Retry: service.RetryPolicy{
			Attempts: cfg.VDBRetryAttempts,
			Initial:  cfg.VDBRetryInitial,
			Max:      cfg.VDBRetryMax,
		},
		AttemptTimeout: cfg.VDBTimeout,
		MaxInflight:    cfg.MaxInflight,
		AdmissionWait:  cfg.AdmissionWait,
	})

	healthChecks := map[string]handlers.HealthCheck{
		"storage":      db.PingContext,
		"vector_store": vectorStore.HealthCheck,
	}
	if responseCache != nil {
		healthChecks["cache"] = responseCache.Ping
	}

	deps := &http.Deps{
		QueryService:  queryService,
		VectorStore:   vectorStore,
		Settings:      runtime,
		ModelCatalog:  catalog,
		HealthChecks:  healthChecks,
		HealthTimeout: cfg.HealthTimeout,
		AppName:       cfg.AppName,
		AppVersion:    cfg.AppVersion,
	}
	if cfg.RateLimitRPS > 0 {
		trustedProxies, err := cfg.TrustedProxyPrefixes()
		if err != nil {
			return err
		}
		deps.RateLimiter = http.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, trustedProxies...)
	}

	server := &nethttp.Server{
		Addr:    cfg.Address(),
		Handler: http.NewRouter(deps),
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr, "version", cfg.AppVersion)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel, "timeout", cfg.LLMTimeout)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := queryLedger.Close(shutdownCtx); err != nil {
		slog.Error("Ledger drain incomplete", "error", err)
	}
	slog.Info("Server stopped")
	return nil
}

// newCache builds the response cache selected by CACHE_TYPE. It returns a nil
// cache when caching is off.
func newCache(cfg *config.Config) (cache.Cache, func(), error) {
	noop := func() {}

	switch cfg.CacheType {
	case config.CacheMemory:
		local, err := cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("Response cache enabled", "type", cfg.CacheType, "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return local, noop, nil

	case config.CacheRedis:
		local, err := cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			return nil, noop, err
		}
		remote, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		slog.Info("Response cache enabled", "type", cfg.CacheType, "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return cache.NewTiered(local, remote), func() { _ = remote.Close() }, nil

	default:
		return nil, noop, nil
	}
}
