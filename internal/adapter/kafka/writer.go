package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mgw2168/2019-nCoV/internal/config"
	"github.com/mgw2168/2019-nCoV/internal/domain"
	"github.com/mgw2168/2019-nCoV/internal/observability"
)

// Record types carried in the record_type header.
const (
	RecordTypeDaily  = "daily"
	RecordTypeRegion = "region"
)

const dateKeyLayout = "2006-01-02"

// RegionRecord is the message value for one region's confirmed count.
type RegionRecord struct {
	Name      string `json:"name"`
	Confirmed int    `json:"confirmed"`
	Severity  string `json:"severity"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces statistics records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishSeries writes one message per day, keyed by date, in a single
// WriteMessages call.
func (w *Writer) PublishSeries(ctx context.Context, records []domain.DailyRecord) error {
	if len(records) == 0 {
		return nil
	}
	publishedAt := domain.Now()
	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		msg, err := dailyMessage(rec, publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.write(ctx, RecordTypeDaily, msgs)
}

// PublishRegions writes one message per region, keyed by region name, in
// sorted name order.
func (w *Writer) PublishRegions(ctx context.Context, counts domain.RegionCounts) error {
	if len(counts) == 0 {
		return nil
	}
	publishedAt := domain.Now()
	names := counts.Names()
	msgs := make([]kafkago.Message, len(names))
	for i, name := range names {
		msg, err := regionMessage(name, counts[name], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.write(ctx, RecordTypeRegion, msgs)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) write(ctx context.Context, recordType string, msgs []kafkago.Message) error {
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %s records: %w", recordType, err)
	}
	w.metrics.RecordsPublished.Add(float64(len(msgs)))
	w.logger.Debug("records published", "record_type", recordType, "count", len(msgs))
	return nil
}

func dailyMessage(rec domain.DailyRecord, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize daily record: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(rec.Date.Format(dateKeyLayout)),
		Value:   data,
		Headers: headers(RecordTypeDaily, publishedAt),
	}, nil
}

func regionMessage(name string, confirmed int, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(RegionRecord{
		Name:      name,
		Confirmed: confirmed,
		Severity:  domain.Bucket(confirmed).String(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region record: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(name),
		Value:   data,
		Headers: headers(RecordTypeRegion, publishedAt),
	}, nil
}

func headers(recordType string, publishedAt time.Time) []kafkago.Header {
	return []kafkago.Header{
		{Key: "record_type", Value: []byte(recordType)},
		{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
	}
}
