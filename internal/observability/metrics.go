package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// snapshot ingestor.
type Metrics struct {
	IngestRuns        *prometheus.CounterVec // labels: outcome={success,error}
	LocationsIngested prometheus.Gauge
	IngestDuration    prometheus.Histogram
	LastIngestSuccess prometheus.Gauge
	IngestorRunning   prometheus.Gauge
}

// NewMetrics creates and registers all ingest metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jhu_etl",
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		LocationsIngested: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jhu_etl",
			Name:      "locations_ingested",
			Help:      "Number of location records in the most recent snapshot.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jhu_etl",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete fetch-extract-store cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastIngestSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jhu_etl",
			Name:      "last_ingest_success_timestamp_seconds",
			Help:      "Unix time of the last successful ingestion.",
		}),
		IngestorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jhu_etl",
			Name:      "ingestor_running",
			Help:      "1 when the ingest loop is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.IngestRuns,
		m.LocationsIngested,
		m.IngestDuration,
		m.LastIngestSuccess,
		m.IngestorRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		IngestRuns:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "jhu_etl", Name: "ingest_runs_total"}, []string{"outcome"}),
		LocationsIngested: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "jhu_etl", Name: "locations_ingested"}),
		IngestDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "jhu_etl", Name: "ingest_duration_seconds"}),
		LastIngestSuccess: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "jhu_etl", Name: "last_ingest_success_timestamp_seconds"}),
		IngestorRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "jhu_etl", Name: "ingestor_running"}),
	}
}
