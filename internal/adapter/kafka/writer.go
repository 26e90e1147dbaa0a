package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-scheduler/internal/config"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces fired events to a Kafka topic.
// It implements runner.EventPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch stamps, serializes and publishes events in a single WriteMessages
// call. Events are keyed by session ID so one session's events stay ordered
// within a partition.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(domain.Stamp(events[i]))
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	w.logger.Debug("events published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Event into a Kafka message.
func serializeToMessage(event domain.Event) (kafkago.Message, error) {
	data, err := domain.SerializeEvent(event)
	if err != nil {
		return kafkago.Message{}, err
	}
	headers := []kafkago.Header{
		{Key: "kind", Value: []byte(event.Kind)},
		{Key: "weather", Value: []byte(event.Weather)},
		{Key: "global_time", Value: []byte(strconv.FormatFloat(event.Time, 'f', -1, 64))},
	}
	if !event.EmittedAt.IsZero() {
		headers = append(headers, kafkago.Header{Key: "emitted_at", Value: []byte(event.EmittedAt.Format(time.RFC3339))})
	}
	return kafkago.Message{
		Key:     []byte(event.SessionID),
		Value:   data,
		Headers: headers,
	}, nil
}
