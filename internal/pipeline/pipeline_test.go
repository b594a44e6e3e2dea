package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-safety-training/internal/hazard"
	"github.com/couchcryptid/storm-safety-training/internal/notify"
	"github.com/couchcryptid/storm-safety-training/internal/observability"
	"github.com/couchcryptid/storm-safety-training/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]pipeline.RawMessage
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]pipeline.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw pipeline.RawMessage) ([]notify.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	if string(raw.Value) == "calm" {
		return nil, nil
	}
	return []notify.Notification{{ID: string(raw.Key), Kind: notify.KindHazard}}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []notify.Notification
	err    error
	calls  int
}

func (m *mockLoader) LoadBatch(_ context.Context, ns []notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, ns...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func newPipeline(ext pipeline.BatchExtractor, tfm pipeline.Transformer, ldr pipeline.BatchLoader) *pipeline.Pipeline {
	return pipeline.New(ext, tfm, ldr, observability.DiscardLogger(), newTestMetrics(), 10)
}

func run(t *testing.T, p *pipeline.Pipeline, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

func msg(key, value string) pipeline.RawMessage {
	return pipeline.RawMessage{Key: []byte(key), Value: []byte(value)}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]pipeline.RawMessage{{msg("a", "gusty"), msg("b", "gusty")}}}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockTransformer{}, ldr)

	run(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "a", ldr.loaded[0].ID)
	assert.Equal(t, "b", ldr.loaded[1].ID)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockTransformer{}, ldr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CalmBatchSkipsLoadButCommits(t *testing.T) {
	var committed atomic.Int32
	raw := msg("a", "calm")
	raw.Commit = func(context.Context) error {
		committed.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]pipeline.RawMessage{{raw}}}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockTransformer{}, ldr)

	run(t, p, 300*time.Millisecond)

	assert.Equal(t, 0, ldr.calls)
	assert.Equal(t, int32(1), committed.Load())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsPoisonMessage(t *testing.T) {
	var committed atomic.Int32
	raw := msg("bad", "not json")
	raw.Topic = "weather-samples"
	raw.Commit = func(context.Context) error {
		committed.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]pipeline.RawMessage{{raw}}}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockTransformer{err: errors.New("bad data")}, ldr)

	run(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Equal(t, int32(1), committed.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var committed atomic.Int32
	raw := msg("a", "gusty")
	raw.Commit = func(context.Context) error {
		committed.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]pipeline.RawMessage{{raw}}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}
	p := newPipeline(ext, &mockTransformer{}, ldr)

	run(t, p, 300*time.Millisecond)

	assert.Equal(t, 1, ldr.calls)
	assert.Equal(t, int32(0), committed.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_RecoversAfterExtractError(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("leader not available")},
		batches: [][]pipeline.RawMessage{nil, {msg("a", "gusty")}},
	}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockTransformer{}, ldr)

	run(t, p, time.Second)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "a", ldr.loaded[0].ID)
}

func TestHazardTransformer_Transform(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 18, 0, 0, 0, time.UTC))
	d := notify.NewDispatcher(notify.Options{Clock: clock, Logger: observability.DiscardLogger()})
	tfm := pipeline.NewTransformer(hazard.NewClassifier(hazard.DefaultWindows), d, clock, observability.DiscardLogger(), newTestMetrics())

	value, err := json.Marshal(map[string]any{"windSpeed": 25.0, "windGusts": 55.0})
	require.NoError(t, err)

	out, err := tfm.Transform(context.Background(), pipeline.RawMessage{Key: []byte("KOUN"), Value: value})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.NotEmpty(t, out[0].ID)
	assert.Equal(t, "hazard:wind", out[0].Key)
	assert.Equal(t, notify.SeverityHigh, out[0].Severity)
	assert.Contains(t, out[0].Message, "KOUN")
	assert.Contains(t, out[0].Message, "Apr 27 00:00 UTC", "wind window is 6h from the clock")

	if diff := cmp.Diff(out, d.Items()); diff != "" {
		t.Errorf("feed mismatch (-returned +feed):\n%s", diff)
	}
}

func TestHazardTransformer_Calm(t *testing.T) {
	d := notify.NewDispatcher(notify.Options{Logger: observability.DiscardLogger()})
	tfm := pipeline.NewTransformer(hazard.NewClassifier(hazard.DefaultWindows), d, nil, observability.DiscardLogger(), newTestMetrics())

	out, err := tfm.Transform(context.Background(), msg("KOUN", `{"windSpeed": 5}`))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, d.Items())
}

func TestHazardTransformer_InvalidJSON(t *testing.T) {
	d := notify.NewDispatcher(notify.Options{Logger: observability.DiscardLogger()})
	tfm := pipeline.NewTransformer(hazard.NewClassifier(hazard.DefaultWindows), d, nil, observability.DiscardLogger(), newTestMetrics())

	_, err := tfm.Transform(context.Background(), msg("KOUN", "not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sample")
}

func TestHazardTransformer_NilLoggerUsesDefault(t *testing.T) {
	d := notify.NewDispatcher(notify.Options{Logger: observability.DiscardLogger()})
	tfm := pipeline.NewTransformer(hazard.NewClassifier(hazard.DefaultWindows), d, nil, nil, nil)

	out, err := tfm.Transform(context.Background(), msg("KOUN", `{"windSpeed": 25, "windGusts": 55}`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hazard:wind", out[0].Key)
}

func TestPipeline_Run_NilLoggerUsesDefault(t *testing.T) {
	ext := &mockExtractor{batches: [][]pipeline.RawMessage{{msg("a", "gusty")}}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, nil, newTestMetrics(), 10)

	run(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
}
