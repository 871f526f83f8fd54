package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/incident-risk-service/internal/adapter/csvfile"
	"github.com/couchcryptid/incident-risk-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/incident-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/incident-risk-service/internal/adapter/sqlite"
	"github.com/couchcryptid/incident-risk-service/internal/cluster"
	"github.com/couchcryptid/incident-risk-service/internal/config"
	"github.com/couchcryptid/incident-risk-service/internal/observability"
	"github.com/couchcryptid/incident-risk-service/internal/pipeline"
	"github.com/couchcryptid/incident-risk-service/internal/risk"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

const rebuildInterval = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	strategy, err := spatial.ParseStrategy(cfg.IndexStrategy)
	if err != nil {
		logger.Error("invalid index strategy", "error", err)
		os.Exit(1)
	}
	clusterer, err := cluster.NewClusterer(cluster.Params{EpsilonKM: cfg.EpsilonKM, MinSamples: cfg.MinSamples}, strategy)
	if err != nil {
		logger.Error("invalid clustering parameters", "error", err)
		os.Exit(1)
	}

	var source pipeline.Extractor
	switch cfg.IncidentSource {
	case config.SourceSQLite:
		source = sqlite.NewSource(cfg.IncidentPath)
	default:
		source = csvfile.NewSource(cfg.IncidentPath)
	}
	logger.Info("incident source", "kind", cfg.IncidentSource, "path", cfg.IncidentPath)

	engine := risk.NewEngine()
	builder := pipeline.New(source, clusterer, strategy, engine, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := builder.BuildWithRetry(ctx, cfg.BuildMaxAttempts); err != nil {
		logger.Error("initial cluster build failed", "error", err)
		os.Exit(1)
	}

	var assessor risk.Assessor = engine
	if cfg.QueryCacheSize > 0 {
		assessor = risk.NewCachedAssessor(engine, cfg.QueryCacheSize, metrics.ObserveCacheLookup)
		logger.Info("query cache enabled", "size", cfg.QueryCacheSize)
	}

	// Alert publishing is feature-flagged via KAFKA_ENABLED.
	var publisher httpadapter.AlertPublisher
	var writer *kafkaadapter.AlertWriter
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewAlertWriter(cfg, logger, metrics)
		publisher = writer
		logger.Info("kafka alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka alert publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, assessor, engine, publisher, cfg.RiskThresholdKM, logger, metrics)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return rebuildOnHangup(gctx, builder, logger)
	})

	g.Go(func() error {
		<-gctx.Done()
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
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// rebuildOnHangup rebuilds the snapshot on SIGHUP until ctx is done. A failed
// rebuild keeps the current snapshot serving. Bursts of signals are throttled
// to one rebuild per interval.
func rebuildOnHangup(ctx context.Context, builder *pipeline.Builder, logger *slog.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	limiter := rate.NewLimiter(rate.Every(rebuildInterval), 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if !limiter.Allow() {
				logger.Warn("rebuild throttled", "min_interval", rebuildInterval)
				continue
			}
			logger.Info("rebuild requested")
			if _, err := builder.Build(ctx); err != nil {
				logger.Error("rebuild failed, keeping current snapshot", "error", err)
			}
		}
	}
}
