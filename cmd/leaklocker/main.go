package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/qldwater/leaklocker/internal/adapter/csvfile"
	"github.com/qldwater/leaklocker/internal/adapter/httpapi"
	kafkaadapter "github.com/qldwater/leaklocker/internal/adapter/kafka"
	"github.com/qldwater/leaklocker/internal/config"
	"github.com/qldwater/leaklocker/internal/domain"
	"github.com/qldwater/leaklocker/internal/observability"
	"github.com/qldwater/leaklocker/internal/pipeline"
	"github.com/qldwater/leaklocker/internal/synthetic"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var extractor pipeline.Extractor
	if cfg.DataSource == config.SourceSynthetic {
		extractor = synthetic.NewSource(synthetic.DefaultOptions(cfg.SyntheticSeed))
		logger.Info("using synthetic data source", "seed", cfg.SyntheticSeed)
	} else {
		extractor = csvfile.NewLoader(cfg.DataSource, cfg.LoaderCacheSize, logger, metrics)
		logger.Info("using csv data source", "path", cfg.DataSource, "cache_size", cfg.LoaderCacheSize)
	}

	detector, err := domain.NewDetector(cfg.DetectionPolicy, cfg.FixedThresholdLPM, cfg.BaselineMultiplier)
	if err != nil {
		logger.Error("failed to build detector", "error", err)
		os.Exit(1)
	}
	logger.Info("detection policy selected", "policy", detector.Policy())

	// Alert publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.AlertPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka alert publishing enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka alert publishing disabled")
	}

	annotator := pipeline.NewAnnotator(detector, logger)
	p := pipeline.New(extractor, annotator, publisher, logger, metrics, cfg.RefreshInterval)

	srv := httpapi.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the pipeline. An initial load failure is fatal and triggers
	// shutdown rather than serving an empty dataset forever.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
