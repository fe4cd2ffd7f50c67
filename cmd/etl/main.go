package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	httpadapter "github.com/couchcryptid/jhu-snapshot-etl/internal/adapter/http"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/adapter/jhu"
	kafkaadapter "github.com/couchcryptid/jhu-snapshot-etl/internal/adapter/kafka"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/adapter/rediscache"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/config"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/ingest"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		// The snapshot key may still become reachable later; keep going.
		logger.Warn("redis ping failed", "addr", cfg.RedisAddr, "error", err)
	} else {
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	}

	source := jhu.NewClient(cfg.SourceBaseURL, cfg.FetchTimeout, logger)
	cache := rediscache.New(rdb)

	// Announcements are feature-flagged via KAFKA_ENABLED.
	var announcer ingest.Announcer
	var kafkaAnnouncer *kafkaadapter.Announcer
	if cfg.KafkaEnabled {
		kafkaAnnouncer = kafkaadapter.NewAnnouncer(cfg, logger)
		announcer = kafkaAnnouncer
		logger.Info("snapshot announcements enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("snapshot announcements disabled")
	}

	ingestor := ingest.New(source, cache, announcer, logger, metrics, cfg.SnapshotKey, cfg.IngestInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, ingestor, ingestor, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the ingest loop.
	go func() {
		if err := ingestor.Run(ctx); err != nil {
			logger.Error("ingestor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaAnnouncer != nil {
		if err := kafkaAnnouncer.Close(); err != nil {
			logger.Error("kafka announcer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
