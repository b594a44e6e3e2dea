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

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-safety-training/internal/achievement"
	httpadapter "github.com/couchcryptid/storm-safety-training/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-safety-training/internal/adapter/kafka"
	"github.com/couchcryptid/storm-safety-training/internal/config"
	"github.com/couchcryptid/storm-safety-training/internal/feed"
	"github.com/couchcryptid/storm-safety-training/internal/hazard"
	"github.com/couchcryptid/storm-safety-training/internal/notify"
	"github.com/couchcryptid/storm-safety-training/internal/observability"
	"github.com/couchcryptid/storm-safety-training/internal/pipeline"
	"github.com/couchcryptid/storm-safety-training/internal/schedule"
	"github.com/couchcryptid/storm-safety-training/internal/scoring"
	"github.com/couchcryptid/storm-safety-training/internal/store"
)

const attemptPruneInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Error("failed to open learner store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	learnerStore := store.New(backend, store.Options{
		TTL:     cfg.StoreTTL,
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics,
	})
	logger.Info("learner store opened", "driver", cfg.StoreDriver, "ttl", cfg.StoreTTL)

	// Escalations go to their own topic so the sink is not written twice.
	var escalations *kafkaadapter.Writer
	var escalator notify.Escalator
	if cfg.KafkaEscalationTopic != "" {
		escalations = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaEscalationTopic, logger)
		escalator = escalations
		logger.Info("escalation publishing enabled", "topic", cfg.KafkaEscalationTopic)
	}

	dispatcher := notify.NewDispatcher(notify.Options{
		Capacity:  cfg.FeedCapacity,
		Clock:     clock,
		Escalator: escalator,
		Logger:    logger,
		Metrics:   metrics,
	})
	engine := achievement.NewEngine(learnerStore, clock, dispatcher, logger, metrics)
	classifier := hazard.NewClassifier(hazard.Windows{
		Storm:         cfg.StormWindow,
		Wind:          cfg.WindWindow,
		Precipitation: cfg.PrecipitationWindow,
		Winter:        cfg.WinterWindow,
	})

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
	transformer := pipeline.NewTransformer(classifier, dispatcher, clock, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	attempts := scoring.NewRegistry(clock)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, dispatcher, engine, attempts, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	// Abandoned attempts are dropped once they outlive the learner store TTL.
	pruner := schedule.NewTicker("attempt-prune", attemptPruneInterval, func(context.Context) error {
		if n := attempts.Prune(cfg.StoreTTL); n > 0 {
			logger.Info("pruned abandoned attempts", "count", n)
		}
		return nil
	}, clock, logger, metrics)
	g.Go(func() error {
		return pruner.Run(gctx)
	})

	if cfg.SimulateFeed {
		gen := feed.NewSeeded(cfg.SimulateSeed, clock)
		task := gen.Task(func(ctx context.Context, s hazard.Sample) error {
			out := transformer.Process(ctx, s, s.ObservedAt)
			if len(out) == 0 {
				return nil
			}
			return writer.LoadBatch(ctx, out)
		})
		ticker := schedule.NewTicker("simulated-feed", cfg.SimulateInterval, task, clock, logger, metrics)
		logger.Info("simulated weather feed enabled", "interval", cfg.SimulateInterval, "seed", cfg.SimulateSeed)
		g.Go(func() error {
			return ticker.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if escalations != nil {
		if err := escalations.Close(); err != nil {
			logger.Error("kafka escalation writer close error", "error", err)
		}
	}
	if err := learnerStore.Close(); err != nil {
		logger.Error("learner store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return store.OpenSQLite(cfg.StorePath)
	case config.StoreRedis:
		return store.NewRedisBackend(ctx, cfg.RedisAddr)
	default:
		return store.NewMemoryBackend(), nil
	}
}
