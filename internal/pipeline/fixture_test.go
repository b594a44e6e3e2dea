package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-safety-training/internal/hazard"
	"github.com/couchcryptid/storm-safety-training/internal/notify"
	"github.com/couchcryptid/storm-safety-training/internal/observability"
	"github.com/couchcryptid/storm-safety-training/internal/pipeline"
)

// readFixture returns each sample in testdata/samples.json as a raw message.
func readFixture(t *testing.T) []pipeline.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "samples.json"))
	require.NoError(t, err)

	var rows []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &rows))

	out := make([]pipeline.RawMessage, len(rows))
	for i, row := range rows {
		out[i] = pipeline.RawMessage{Value: row, Offset: int64(i)}
	}
	return out
}

func TestHazardTransformer_WithFixture(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 19, 0, 0, 0, time.UTC))
	esc := &escalations{}
	d := notify.NewDispatcher(notify.Options{Clock: clock, Escalator: esc, Logger: observability.DiscardLogger()})
	tfm := pipeline.NewTransformer(hazard.NewClassifier(hazard.DefaultWindows), d, clock, observability.DiscardLogger(), newTestMetrics())

	perSample := []int{0, 1, 3, 1, 1, 2, 0}
	raws := readFixture(t)
	require.Len(t, raws, len(perSample))

	total := 0
	for i, raw := range raws {
		out, err := tfm.Transform(context.Background(), raw)
		require.NoError(t, err)
		assert.Len(t, out, perSample[i], "sample %d", i)
		total += len(out)
	}
	assert.Equal(t, 8, total)

	// One retained entry per hazard kind, newest first.
	items := d.Items()
	keys := make([]string, len(items))
	for i, n := range items {
		keys[i] = n.Key
	}
	assert.Equal(t, []string{"hazard:wind", "hazard:storm", "hazard:winter", "hazard:precipitation"}, keys)
	for _, n := range items {
		assert.Equal(t, notify.SeverityMedium, n.Severity, n.Key)
	}

	// Only the three severe alerts from the thunderstorm sample escalate.
	assert.Equal(t, 3, esc.count)
}

func TestHazardTransformer_ObservationTimeDrivesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC))
	d := notify.NewDispatcher(notify.Options{Clock: clock, Logger: observability.DiscardLogger()})
	tfm := pipeline.NewTransformer(hazard.NewClassifier(hazard.DefaultWindows), d, clock, observability.DiscardLogger(), newTestMetrics())

	raws := readFixture(t)
	out, err := tfm.Transform(context.Background(), raws[4])
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Moderate winter advisory", out[0].Title)
	// Observed 18:20, winter window 12h.
	assert.Contains(t, out[0].Message, "Apr 27 06:20 UTC")
}

type escalations struct {
	count int
}

func (e *escalations) Escalate(context.Context, notify.Notification) error {
	e.count++
	return nil
}
