// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"trendpress/internal/adapter/cache"
	"trendpress/internal/adapter/dispatch"
	"trendpress/internal/adapter/storage"
	"trendpress/internal/client/plustrends"
	"trendpress/internal/client/twitter"
	"trendpress/internal/config"
	"trendpress/internal/domain/source"
	"trendpress/internal/logger"
	"trendpress/internal/server"
	"trendpress/internal/server/handlers"
	"trendpress/internal/service/aggregation"
	"trendpress/internal/service/content"
)

func main() {
	// A missing .env file is fine in deployed environments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisCache.Close()

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// Storage adapters
	trendStore := storage.NewTrendStore(db)
	locationStore := storage.NewLocationStore(db)
	tokenStore := storage.NewTokenStore(db)
	imageStore := storage.NewImageStore(db)

	for name, initFn := range map[string]func(context.Context) error{
		"trends":    trendStore.Init,
		"locations": locationStore.Init,
		"tokens":    tokenStore.Init,
		"images":    imageStore.Init,
	} {
		if err := initFn(ctx); err != nil {
			log.Fatalf("Failed to initialize %s schema: %v", name, err)
		}
	}

	// Upstream clients
	tokens := twitter.NewTokenSource(
		cfg.Upstream.BaseURL,
		cfg.Upstream.ConsumerKey,
		cfg.Upstream.ConsumerSecret,
		redisCache,
		tokenStore,
		cfg.Upstream.RequestTimeout,
	)
	trendAPI := twitter.NewClient(cfg.Upstream.BaseURL, tokens, cfg.Upstream.RequestTimeout)

	trendSources := []source.TrendSource{trendAPI}
	if cfg.Upstream.EnableScrape && cfg.Upstream.ScrapeSourceURL != "" {
		trendSources = append(trendSources,
			plustrends.NewClient(cfg.Upstream.ScrapeSourceURL, cfg.Upstream.RequestTimeout))
	}

	// Content pipeline
	feedSources, err := source.LoadFeedSources(cfg.Content.FeedConfigPath)
	if err != nil {
		log.Fatalf("Failed to load feed sources: %v", err)
	}

	aggregator := content.NewAggregator(
		feedSources,
		redisCache,
		trendStore,
		content.StrategyFor(cfg.Content.ScorePolicy),
		content.NewImageSelector(cfg.Content.FetchTimeout),
		imageStore,
		content.Config{
			ScoreThreshold: cfg.Content.ScoreThreshold,
			FeedTTL:        cfg.Redis.FeedTTL,
			CopyImages:     cfg.Content.CopyImages,
			FetchTimeout:   cfg.Content.FetchTimeout,
		},
	)

	// Aggregation pipeline
	dispatcher := dispatch.NewNATSDispatcher(natsConn)

	merger := aggregation.NewMerger(trendSources, trendStore, aggregation.MergerConfig{
		HistoryPolicy:   cfg.Aggregation.HistoryPolicy,
		FilterStopWords: cfg.Aggregation.StopWordsEnable,
	})

	scheduler := aggregation.NewScheduler(trendAPI, dispatcher, aggregation.SchedulerConfig{
		BatchSize:        cfg.Aggregation.BatchSize,
		Window:           time.Duration(cfg.Aggregation.WindowSeconds) * time.Second,
		AggregateQueue:   cfg.Aggregation.AggregateQueue,
		ExcludeTypeCodes: cfg.Upstream.ExcludeTypeCodes,
	})

	worker := aggregation.NewWorker(merger, trendStore, locationStore, dispatcher, scheduler,
		aggregation.WorkerConfig{ContentQueue: cfg.Aggregation.ContentQueue})
	contentWorker := aggregation.NewContentWorker(aggregator)

	// Worker subscriptions
	if err := dispatcher.Subscribe(cfg.Aggregation.AggregateQueue, worker.HandleBatch); err != nil {
		log.Fatalf("Failed to subscribe batch worker: %v", err)
	}
	if err := dispatcher.Subscribe(cfg.Aggregation.ContentQueue, contentWorker.HandleContent); err != nil {
		log.Fatalf("Failed to subscribe content worker: %v", err)
	}
	if err := dispatcher.Subscribe(handlers.KickoffQueue, func(ctx context.Context, _ []byte) error {
		_, err := scheduler.Run(ctx)
		return err
	}); err != nil {
		log.Fatalf("Failed to subscribe kickoff worker: %v", err)
	}

	// HTTP server
	httpServer := server.NewServer(cfg.Server, trendStore, locationStore, imageStore, dispatcher)

	go func() {
		slog.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-shutdown
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Error("dispatcher shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// Initialize database connection.
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection.
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
