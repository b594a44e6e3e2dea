package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/hazard"
	"github.com/couchcryptid/storm-safety-training/internal/notify"
	"github.com/couchcryptid/storm-safety-training/internal/observability"
)

// HazardTransformer implements Transformer: it classifies a sample and pushes
// each alert onto the notification feed.
type HazardTransformer struct {
	classifier *hazard.Classifier
	dispatcher *notify.Dispatcher
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewTransformer creates a HazardTransformer.
func NewTransformer(c *hazard.Classifier, d *notify.Dispatcher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *HazardTransformer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HazardTransformer{
		classifier: c,
		dispatcher: d,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Transform decodes the message value as a sample. The message key stands in
// for a missing station id and the message time for a missing observation
// time.
func (t *HazardTransformer) Transform(ctx context.Context, raw RawMessage) ([]notify.Notification, error) {
	s, err := hazard.ParseSample(raw.Value)
	if err != nil {
		return nil, err
	}
	if s.StationID == "" && len(raw.Key) > 0 {
		s.StationID = string(raw.Key)
	}

	at := raw.Timestamp
	if at.IsZero() {
		at = t.clock.Now()
	}
	return t.Process(ctx, s, at), nil
}

// Process classifies s as of effectiveAt and pushes the resulting
// notifications. It returns the notifications as stored on the feed.
func (t *HazardTransformer) Process(ctx context.Context, s hazard.Sample, effectiveAt time.Time) []notify.Notification {
	alerts := t.classifier.Classify(s, effectiveAt)
	if len(alerts) == 0 {
		return nil
	}

	out := make([]notify.Notification, 0, len(alerts))
	for _, a := range alerts {
		if t.metrics != nil {
			t.metrics.HazardAlerts.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
		}
		n := t.dispatcher.Push(ctx, notify.FromAlert(a))
		out = append(out, n)
	}
	t.logger.Debug("sample classified", "station_id", s.StationID, "alerts", len(alerts))
	return out
}
