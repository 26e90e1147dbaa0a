package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/storm-data-scheduler/internal/config"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes subject snapshots from a Kafka topic.
// It implements runner.SnapshotSource.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  cfg.BatchFlushInterval,
	})
	return &Reader{reader: r, logger: logger}
}

// ReadSnapshot fetches the next message, parses it and commits its offset.
// Malformed messages are committed too so they are never redelivered; the
// returned error then wraps domain.ErrMalformedSnapshot.
func (r *Reader) ReadSnapshot(ctx context.Context) (domain.SubjectSnapshot, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.SubjectSnapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}

	snap, parseErr := mapMessageToSnapshot(msg)
	if err := r.reader.CommitMessages(ctx, msg); err != nil {
		r.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
	if parseErr != nil {
		return domain.SubjectSnapshot{}, fmt.Errorf("%w (topic=%s partition=%d offset=%d)",
			parseErr, msg.Topic, msg.Partition, msg.Offset)
	}
	return snap, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToSnapshot parses a message value. An empty value falls back to
// the key as the subject name with every flag cleared.
func mapMessageToSnapshot(msg kafkago.Message) (domain.SubjectSnapshot, error) {
	if len(msg.Value) == 0 && len(msg.Key) > 0 {
		data, err := json.Marshal(domain.SubjectSnapshot{Subject: string(msg.Key)})
		if err != nil {
			return domain.SubjectSnapshot{}, err
		}
		return domain.ParseSubjectSnapshot(data)
	}
	return domain.ParseSubjectSnapshot(msg.Value)
}
