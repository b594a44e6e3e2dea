// Package achievement decides which badges a learner has earned and records
// them.
//
// Rule evaluation ([Evaluate]) is a pure function of the learner's module
// progress snapshot and the latest event. [Engine] wraps it with persistence:
// it keeps the snapshot and badge set in the learner-scoped store collections
// and set-unions new grants into the badge set, so re-awarding a held badge
// changes nothing, including its original earnedAt.
package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/observability"
	"github.com/couchcryptid/storm-safety-training/internal/store"
)

// Collection kinds used for learner-scoped keys.
const (
	badgesKind   = "badges"
	progressKind = "progress"
	resultsKind  = "results"
)

// Announcer is told about each newly granted badge.
type Announcer interface {
	AnnounceBadge(ctx context.Context, learnerID string, b Badge)
}

// Engine evaluates and persists achievements.
type Engine struct {
	store     *store.Store
	clock     clockwork.Clock
	announcer Announcer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewEngine creates an Engine. announcer and metrics may be nil; a nil logger
// uses slog.Default.
func NewEngine(s *store.Store, clock clockwork.Clock, announcer Announcer, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     s,
		clock:     clock,
		announcer: announcer,
		logger:    logger,
		metrics:   metrics,
	}
}

func (e *Engine) badges(learnerID string) *store.Collection[Badge] {
	return store.Open[Badge](e.store, store.Key(badgesKind, learnerID))
}

func (e *Engine) progress(learnerID string) *store.Collection[ModuleProgress] {
	return store.Open[ModuleProgress](e.store, store.Key(progressKind, learnerID))
}

func (e *Engine) results(learnerID string) *store.Collection[ResultRecord] {
	return store.Open[ResultRecord](e.store, store.Key(resultsKind, learnerID))
}

// Badges returns the learner's earned badges in award order.
func (e *Engine) Badges(ctx context.Context, learnerID string) []Badge {
	return e.badges(learnerID).Read(ctx, []Badge{})
}

// Progress returns the learner's module progress snapshot.
func (e *Engine) Progress(ctx context.Context, learnerID string) []ModuleProgress {
	return e.progress(learnerID).Read(ctx, []ModuleProgress{})
}

// Results returns the learner's quiz and drill history.
func (e *Engine) Results(ctx context.Context, learnerID string) []ResultRecord {
	return e.results(learnerID).Read(ctx, []ResultRecord{})
}

// Apply records ev for the learner, re-evaluates every rule, and persists any
// badges not already held. It returns only the newly granted badges.
func (e *Engine) Apply(ctx context.Context, learnerID string, ev Event) ([]Badge, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("apply %s event: learner id is required", ev.eventKind())
	}
	if err := e.record(ctx, learnerID, ev); err != nil {
		return nil, err
	}

	snapshot := e.Progress(ctx, learnerID)
	ids := Evaluate(snapshot, ev)
	return e.Award(ctx, learnerID, ids)
}

func (e *Engine) record(ctx context.Context, learnerID string, ev Event) error {
	now := e.clock.Now().UTC()
	switch v := ev.(type) {
	case ModuleUpdated:
		err := e.progress(learnerID).Mutate(ctx, nil, func(items []ModuleProgress) ([]ModuleProgress, bool) {
			return withProgress(items, v.Progress), true
		})
		if err != nil {
			return fmt.Errorf("record module progress: %w", err)
		}
	case QuizCompleted:
		_, err := e.results(learnerID).Create(ctx, ResultRecord{
			Kind:             v.eventKind(),
			RefID:            v.AssessmentID,
			Score:            v.Score,
			TimeSpentSeconds: int(v.TimeSpent.Seconds()),
			RecordedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("record quiz result: %w", err)
		}
	case DrillCompleted:
		_, err := e.results(learnerID).Create(ctx, ResultRecord{
			Kind:       v.eventKind(),
			RefID:      v.DrillID,
			Score:      v.Score,
			Passed:     v.Passed,
			RecordedAt: now,
		})
		if err != nil {
			return fmt.Errorf("record drill result: %w", err)
		}
	}
	return nil
}

// Award set-unions ids into the learner's badge collection. Unknown ids are
// skipped. Held badges keep their original earnedAt.
func (e *Engine) Award(ctx context.Context, learnerID string, ids []BadgeID) ([]Badge, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var granted []Badge
	now := e.clock.Now().UTC()
	err := e.badges(learnerID).Mutate(ctx, nil, func(held []Badge) ([]Badge, bool) {
		granted = granted[:0]
		for _, id := range ids {
			category, known := CategoryOf(id)
			if !known {
				e.logger.Warn("skipping unknown badge", "badge", id, "learner_id", learnerID)
				continue
			}
			if slices.ContainsFunc(held, func(b Badge) bool { return b.ID == id }) {
				continue
			}
			b := Badge{ID: id, Category: category, EarnedAt: now}
			held = append(held, b)
			granted = append(granted, b)
		}
		return held, len(granted) > 0
	})
	if err != nil {
		return nil, fmt.Errorf("award badges: %w", err)
	}

	for _, b := range granted {
		e.logger.Info("badge awarded", "learner_id", learnerID, "badge", b.ID, "category", b.Category)
		if e.metrics != nil {
			e.metrics.BadgesAwarded.WithLabelValues(string(b.ID)).Inc()
		}
		if e.announcer != nil {
			e.announcer.AnnounceBadge(ctx, learnerID, b)
		}
	}
	return granted, nil
}
