package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bloglens/intel-service/internal/aipipeline"
	"github.com/bloglens/intel-service/internal/cache"
	"github.com/bloglens/intel-service/internal/config"
	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/embeddings"
	"github.com/bloglens/intel-service/internal/handlers"
	"github.com/bloglens/intel-service/internal/httpapi"
	httpapiHandlers "github.com/bloglens/intel-service/internal/httpapi/handlers"
	"github.com/bloglens/intel-service/internal/objectstorage"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/scheduler"
	"github.com/bloglens/intel-service/internal/scraping"
	"github.com/bloglens/intel-service/internal/taskqueue"
	"github.com/bloglens/intel-service/internal/taxonomy"
	"github.com/bloglens/intel-service/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	logger := log.New(os.Stdout, "[blogintel] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Fatalf("DATABASE_URL is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	taskRepo, err := repository.NewPostgresTaskRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect task store: %v", err)
	}
	defer taskRepo.Close()

	blogRepo := repository.NewPostgresBlogRepository(pool)
	taxonomyRepo := repository.NewPostgresTaxonomyRepository(pool)

	queue := taskqueue.New(taskRepo)

	adapter := scraping.NewHikerAPIClient(scraping.HikerAPIClientConfig{
		APIKey:     cfg.HikerAPIKey,
		BaseURL:    cfg.HikerBaseURL,
		Timeout:    time.Duration(cfg.ScrapeTimeoutMS) * time.Millisecond,
		MaxRetries: cfg.ScrapeMaxRetries,
	})

	lookupCache := setupCache(ctx, cfg, logger)

	batchClient := aipipeline.NewOpenAIBatchClient(
		cfg.AIProviderAPIKey, cfg.AIProviderBaseURL,
		time.Duration(cfg.ScrapeTimeoutMS)*time.Millisecond, cfg.ScrapeMaxRetries, nil,
	)
	pipeline := aipipeline.New(
		batchClient, blogRepo, queue,
		cfg.AIBatchMinSize, time.Duration(cfg.AIBatchMaxWaitHours)*time.Hour, logger,
	)

	matcher := taxonomy.New(taxonomyRepo, logger).WithCache(lookupCache)

	embedClient := embeddings.NewOpenAIEmbeddingClient(
		cfg.AIProviderAPIKey, cfg.AIProviderBaseURL, cfg.EmbeddingModel,
		time.Duration(cfg.ScrapeTimeoutMS)*time.Millisecond, cfg.ScrapeMaxRetries, nil,
	)
	embedder := embeddings.NewService(embedClient, blogRepo, logger).WithCache(lookupCache)

	store := objectstorage.NewStore(cfg.ObjectStoreDir, blogRepo)

	fullScrapeHandler := handlers.NewFullScrapeHandler(adapter, blogRepo, queue, store, cfg.ThumbnailsToPersist, logger)
	discoverHandler := handlers.NewDiscoverHandler(
		adapter, blogRepo, queue, time.Duration(cfg.FreshnessWindowHours)*time.Hour, logger,
	)

	if cfg.SchedulerEnabled {
		sched := scheduler.New(queue, blogRepo, pipeline, matcher, embedder, store, scheduler.Config{
			StaleBatchThresholdHours: cfg.StaleBatchThresholdHours,
			RecoverStuckMinutes:      cfg.RecoverStuckMinutes,
			FreshnessWindowHours:     cfg.FreshnessWindowHours,
		}, logger)
		if err := sched.Start(ctx); err != nil {
			logger.Fatalf("start scheduler: %v", err)
		}
		defer sched.Stop()
		logger.Printf("scheduler enabled and started")
	} else {
		logger.Printf("scheduler disabled by configuration")
	}

	if cfg.WorkerEnabled {
		poller := worker.NewPoller(queue, map[domain.TaskType]worker.Handler{
			domain.TaskFullScrape: fullScrapeHandler,
			domain.TaskDiscover:   discoverHandler,
		}, cfg.WorkerConcurrency, time.Duration(cfg.WorkerPollSeconds)*time.Second, logger)
		go poller.Run(ctx)
		logger.Printf("worker enabled and started")
	} else {
		logger.Printf("worker disabled by configuration")
	}

	api := httpapiHandlers.NewAPI(queue, blogRepo)
	corsOrigins := splitAndTrim(cfg.CORSAllowedOrigins)
	handler := httpapi.NewRouter(httpapi.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.APIAuthToken,
		CORSOrigins:    corsOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

// setupCache wires the lookup cache to Redis when REDIS_ADDR is
// configured, falling back to the in-process TTL'd cache otherwise.
func setupCache(ctx context.Context, cfg config.Config, logger *log.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using in-process lookup cache")
		return cache.NewInProcessCache(cache.Config{
			TTL:        time.Duration(cfg.EmbeddingCacheTTLS) * time.Second,
			MaxEntries: cfg.EmbeddingMaxEntries,
		})
	}

	redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      time.Duration(cfg.EmbeddingCacheTTLS) * time.Second,
	})
	if err != nil {
		logger.Printf("failed to initialize redis lookup cache, fallback to in-process: %v", err)
		return cache.NewInProcessCache(cache.Config{
			TTL:        time.Duration(cfg.EmbeddingCacheTTLS) * time.Second,
			MaxEntries: cfg.EmbeddingMaxEntries,
		})
	}
	logger.Printf("redis lookup cache initialized")
	return redisCache
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
