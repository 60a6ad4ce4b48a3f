package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dongmoa/eventworker/config"
	"dongmoa/eventworker/internal/admin"
	"dongmoa/eventworker/internal/analyzer"
	"dongmoa/eventworker/internal/collector"
	"dongmoa/eventworker/internal/connector"
	"dongmoa/eventworker/internal/merger"
	"dongmoa/eventworker/internal/runner"
	"dongmoa/eventworker/logger"
	"dongmoa/eventworker/services/cache"
	"dongmoa/eventworker/services/publisher"
	"dongmoa/eventworker/services/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("collect_interval", cfg.CollectInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Open storage and apply the seed
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer db.Close()

	if cfg.SeedPath != "" {
		if seed, err := store.LoadSeedFile(cfg.SeedPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.SeedPath).Msg("Seed file not loaded")
		} else if err := store.ApplySeed(ctx, db, seed); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply seed")
		}
	}

	// Initialize services
	services := initializeServices(ctx, &cfg)
	defer services.Cleanup()

	// Assemble the pipeline
	apiConn := connector.NewAPIConnector(cfg.SeoulAPIHost, cfg.SeoulAPIKey)
	pageConn := connector.NewPageConnector(cfg.ChromeAddr, services.Cache)
	col := collector.New(apiConn, pageConn)
	mrg := merger.New(db)
	run := runner.New(db, col, mrg, services.Publisher)

	// HTTP surface
	router := admin.NewRouter(admin.NewHandler(db, run, analyzer.New()), cfg.Environment)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	httpDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting HTTP server")
		httpDone <- srv.ListenAndServe()
	}()

	// Periodic sweep. The first run fires one interval after startup;
	// an immediate run is available through POST /data-sources/collect.
	go func() {
		ticker := time.NewTicker(cfg.CollectInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := run.RunAll(ctx); err != nil {
					log.Error().Err(err).Msg("Scheduled sweep failed")
				}
			}
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	case err := <-httpDone:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds the optional side services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices wires cache and publisher. Both degrade rather
// than abort: without memcache the rate-limit backoff is in-process
// only, without Redis nothing is published.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	} else {
		services.Cache = cache.NewMemoryCache()
		logger.Info("Memcache not configured, using in-process cache")
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		services.Publisher = publisher.Noop{}
		logger.Info("Redis not configured, publishing disabled")
	}

	return services
}
