// Command backfill ingests the snapshot for an explicit date instead of
// waiting for the daily cycle, overwriting whatever the cache holds. Useful
// after an outage or when the upstream republishes a day's report.
//
// Usage:
//
//	go run ./cmd/backfill -date 04-01-2020
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/jhu-snapshot-etl/internal/adapter/jhu"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/adapter/rediscache"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/config"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/ingest"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/observability"
)

const dateLayout = "01-02-2006"

func main() {
	if err := run(); err != nil {
		slog.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	date := flag.String("date", "", "snapshot date to ingest, MM-DD-YYYY")
	flag.Parse()

	if *date == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -date")
	}
	if _, err := time.Parse(dateLayout, *date); err != nil {
		return fmt.Errorf("invalid -date %q: want MM-DD-YYYY", *date)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout+cfg.ShutdownTimeout)
	defer cancel()

	source := jhu.NewClient(cfg.SourceBaseURL, cfg.FetchTimeout, logger)
	cache := rediscache.New(rdb)
	ingestor := ingest.New(source, cache, nil, logger, observability.NewMetrics(), cfg.SnapshotKey, cfg.IngestInterval)

	result, err := ingestor.IngestDate(ctx, *date)
	if err != nil {
		return err
	}

	logger.Info("backfill complete", "date", result.Date, "locations", result.Locations)
	return nil
}
