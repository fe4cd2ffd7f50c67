// Package ingest orchestrates the daily snapshot cycle: pick the date,
// fetch and tokenize the report, extract records, and store the collection
// in the cache as one atomic write.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/jhu-snapshot-etl/internal/domain"
	"github.com/couchcryptid/jhu-snapshot-etl/internal/observability"
)

// SourceFetcher retrieves one day's report as ordered rows of string
// fields, header row included.
type SourceFetcher interface {
	FetchRows(ctx context.Context, date string) ([][]string, error)
}

// Cache is the key-value store holding the serialized snapshot.
type Cache interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
}

// Announcer publishes a notification after a successful ingestion.
type Announcer interface {
	Announce(ctx context.Context, date string, locations int) error
}

// Result reports what one ingestion run produced.
type Result struct {
	Date      string
	Locations int
}

// Ingestor runs the snapshot cycle. Two states only, idle and ingesting;
// there is no retry and no partial write. Overlapping runs race on the
// single cache key, last writer wins.
type Ingestor struct {
	source    SourceFetcher
	cache     Cache
	announcer Announcer // nil disables announcements
	logger    *slog.Logger
	metrics   *observability.Metrics
	key       string
	interval  time.Duration
	clock     clockwork.Clock
	ready     atomic.Bool
}

// New creates an Ingestor writing snapshots under key every interval.
// Pass a nil announcer to disable snapshot-updated events.
func New(source SourceFetcher, cache Cache, announcer Announcer, logger *slog.Logger, metrics *observability.Metrics, key string, interval time.Duration) *Ingestor {
	return &Ingestor{
		source:    source,
		cache:     cache,
		announcer: announcer,
		logger:    logger,
		metrics:   metrics,
		key:       key,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
	}
}

// SetClock swaps the scheduling clock. Tests use a fake to step through
// ingestion cycles deterministically.
func (i *Ingestor) SetClock(c clockwork.Clock) {
	i.clock = c
}

// Ingest runs one snapshot cycle for "yesterday". Any failure aborts
// before the cache write, leaving the previous snapshot intact.
func (i *Ingestor) Ingest(ctx context.Context) (Result, error) {
	return i.IngestDate(ctx, domain.SnapshotDate())
}

// IngestDate runs one snapshot cycle for an explicit MM-DD-YYYY date. The
// cache write is the final step after every fallible step has succeeded,
// so a failed run never clobbers the previous snapshot.
func (i *Ingestor) IngestDate(ctx context.Context, date string) (Result, error) {
	start := time.Now()
	i.logger.Info("ingesting snapshot", "date", date, "key", i.key)

	rows, err := i.source.FetchRows(ctx, date)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues("error").Inc()
		return Result{Date: date}, fmt.Errorf("fetch snapshot %s: %w", date, err)
	}

	// Row 0 is the header; the tokenizer hands it back as data.
	if len(rows) > 0 {
		rows = rows[1:]
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.ExtractRecord(row))
	}

	payload, err := json.Marshal(records)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues("error").Inc()
		return Result{Date: date}, fmt.Errorf("serialize snapshot %s: %w", date, err)
	}

	if err := i.cache.Set(ctx, i.key, string(payload)); err != nil {
		i.metrics.IngestRuns.WithLabelValues("error").Inc()
		return Result{Date: date}, fmt.Errorf("store snapshot %s: %w", date, err)
	}

	i.ready.Store(true)
	i.metrics.IngestRuns.WithLabelValues("success").Inc()
	i.metrics.LocationsIngested.Set(float64(len(records)))
	i.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	i.metrics.LastIngestSuccess.SetToCurrentTime()
	i.logger.Info("updated locations", "count", len(records), "date", date)

	if i.announcer != nil {
		// The snapshot is already durable; a failed announcement is not a
		// failed ingestion.
		if err := i.announcer.Announce(ctx, date, len(records)); err != nil {
			i.logger.Warn("announce snapshot failed", "error", err, "date", date)
		}
	}

	return Result{Date: date, Locations: len(records)}, nil
}

// Run ingests immediately and then once per interval until the context is
// cancelled. Failures are logged and swallowed here; the next tick tries
// again with whatever date is then current.
func (i *Ingestor) Run(ctx context.Context) error {
	i.logger.Info("ingestor started", "interval", i.interval)
	i.metrics.IngestorRunning.Set(1)
	defer i.metrics.IngestorRunning.Set(0)

	ticker := i.clock.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		if _, err := i.Ingest(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			i.logger.Error("ingest snapshot failed", "error", err)
		}

		select {
		case <-ctx.Done():
			i.logger.Info("ingestor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// Snapshot reads the current record collection back from the cache.
func (i *Ingestor) Snapshot(ctx context.Context) ([]domain.Record, error) {
	raw, err := i.cache.Get(ctx, i.key)
	if err != nil {
		return nil, err
	}

	var records []domain.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

// CheckReadiness returns nil once a snapshot is available, either from a
// run in this process or left in the cache by a previous one.
func (i *Ingestor) CheckReadiness(ctx context.Context) error {
	if i.ready.Load() {
		return nil
	}
	if _, err := i.cache.Get(ctx, i.key); err != nil {
		return fmt.Errorf("no snapshot available: %w", err)
	}
	return nil
}
