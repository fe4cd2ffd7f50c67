// Package kafka publishes snapshot-updated notifications so downstream
// services can react to a fresh snapshot without polling the cache.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/jhu-snapshot-etl/internal/config"
)

// SnapshotEvent is the message body announcing one completed ingestion.
type SnapshotEvent struct {
	Date       string    `json:"date"`
	Locations  int       `json:"locations"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Announcer produces snapshot-updated events to a Kafka topic.
// It implements ingest.Announcer.
type Announcer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAnnouncer creates a Kafka producer for the configured topic.
func NewAnnouncer(cfg *config.Config, logger *slog.Logger) *Announcer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Announcer{writer: w, logger: logger}
}

// Announce publishes one snapshot-updated event.
func (a *Announcer) Announce(ctx context.Context, date string, locations int) error {
	event := SnapshotEvent{
		Date:       date,
		Locations:  locations,
		IngestedAt: time.Now().UTC(),
	}
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return a.writer.WriteMessages(ctx, msg)
}

func (a *Announcer) Close() error {
	return a.writer.Close()
}

// serializeToMessage marshals a SnapshotEvent into a Kafka message keyed by
// snapshot date.
func serializeToMessage(event SnapshotEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "ingested_at", Value: []byte(event.IngestedAt.Format(time.RFC3339))},
		},
	}, nil
}
