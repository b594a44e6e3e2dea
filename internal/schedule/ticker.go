// Package schedule runs periodic work on an injectable clock.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/observability"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Ticker calls a Task every interval. Ticks never overlap: a tick that runs
// long delays the next one. A tick that fails or panics is logged and the
// schedule carries on.
type Ticker struct {
	name     string
	interval time.Duration
	task     Task
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTicker creates a Ticker. A nil clock uses real time and a nil logger
// uses slog.Default.
func NewTicker(name string, interval time.Duration, task Task, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Ticker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		name:     name,
		interval: interval,
		task:     task,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run blocks until ctx is cancelled. It returns nil on cancellation; the
// in-flight tick, if any, has finished by the time it returns.
func (t *Ticker) Run(ctx context.Context) error {
	if t.interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %s", t.name, t.interval)
	}

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("schedule started", "name", t.name, "interval", t.interval)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("schedule stopping", "name", t.name, "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			t.tick(ctx)
		}
	}
}

func (t *Ticker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := t.task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		t.fail(err)
	}
}

func (t *Ticker) fail(err error) {
	t.logger.Error("scheduled tick failed", "name", t.name, "error", err)
	if t.metrics != nil {
		t.metrics.TickFailures.Inc()
	}
}
