package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chess-ranking/internal/config"
	"github.com/chess-ranking/internal/handler"
	"github.com/chess-ranking/internal/kafka"
	"github.com/chess-ranking/internal/metrics"
	"github.com/chess-ranking/internal/postgres"
	"github.com/chess-ranking/internal/redis"
	"github.com/chess-ranking/internal/service"
	"github.com/chess-ranking/internal/store"
	"github.com/chess-ranking/internal/websocket"
	"github.com/chess-ranking/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Missing .env files are fine; the environment may already be set
	_ = godotenv.Load()

	// Setup structured logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the player store
	playerStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize player store", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.New()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	opts := []service.Option{service.WithBroadcaster(wsHub)}

	// Initialize the Redis ranking index
	var syncWorker *worker.SyncWorker
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		index, err := redis.NewRankingIndex(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, computing rankings in process", "error", err)
		} else {
			defer index.Close()
			logger.Info("connected to Redis")
			opts = append(opts, service.WithIndex(index))

			syncWorker = worker.NewSyncWorker(playerStore, index, &cfg.Sync, logger)

			// Rebuild the index on startup so it matches the store
			if err := syncWorker.RunOnce(ctx); err != nil {
				logger.Warn("failed to sync ranking index on startup", "error", err)
			}

			if cfg.Sync.Enabled {
				if err := syncWorker.Start(ctx); err != nil {
					logger.Error("failed to start sync worker", "error", err)
					os.Exit(1)
				}
			}
		}
	}

	// Initialize services
	playerService := service.NewPlayerService(playerStore, m, cfg.Players, logger, opts...)
	wsHub.SetRankingsSource(playerService.GetRankings)

	// Initialize Kafka consumer for registration ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, playerService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	httpHandler := handler.NewHandler(playerService, wsHub, m, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop sync worker
	if syncWorker != nil {
		if err := syncWorker.Stop(); err != nil {
			logger.Error("failed to stop sync worker", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	// Stop WebSocket hub
	wsHub.Stop()

	logger.Info("server stopped")
}

// loadConfig reads the config file, falling back to defaults only when it does not exist
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("config file not found, using defaults", "path", path)
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

// openStore creates the configured player store and a function releasing it
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		logger.Info("connected to PostgreSQL")
		return repo, repo.Close, nil
	default:
		logger.Info("using in-memory player store")
		return store.NewMemory(), func() {}, nil
	}
}
