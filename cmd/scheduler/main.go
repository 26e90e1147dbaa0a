package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-data-scheduler/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-data-scheduler/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-scheduler/internal/config"
	"github.com/couchcryptid/storm-data-scheduler/internal/observability"
	"github.com/couchcryptid/storm-data-scheduler/internal/runner"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Kafka is feature-flagged via KAFKA_ENABLED; without it events go to the log.
	var (
		source    runner.SnapshotSource
		publisher runner.EventPublisher
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		source, publisher = reader, writer
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers,
			"source_topic", cfg.KafkaSourceTopic, "sink_topic", cfg.KafkaSinkTopic)
	} else {
		publisher = runner.NewLogPublisher(logger)
		logger.Info("kafka disabled, events will be logged")
	}

	r, err := runner.New(cfg, source, publisher, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		logger.Error("failed to start sessions", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, r, r, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start tick loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
