package runner

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// LogPublisher writes events to a logger. It stands in for the Kafka writer
// when KAFKA_ENABLED is false.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher logging at info level.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// LoadBatch logs each event and never fails.
func (p *LogPublisher) LoadBatch(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "event",
			"kind", e.Kind,
			"weather", e.Weather,
			"session_id", e.SessionID,
			"subject", e.Subject,
			"time", e.Time,
			"value", e.Value,
		)
	}
	return nil
}
