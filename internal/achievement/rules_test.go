package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-safety-training/internal/scoring"
)

func progress(t *testing.T, id string, completed, total int) ModuleProgress {
	t.Helper()
	p, err := NewModuleProgress(id, completed, total)
	require.NoError(t, err)
	return p
}

func TestNewModuleProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		wantPct   int
		want      ModuleStatus
	}{
		{"nothing done", 0, 8, 0, StatusNotStarted},
		{"one third rounds down", 1, 3, 33, StatusInProgress},
		{"two thirds rounds up", 2, 3, 67, StatusInProgress},
		{"done", 8, 8, 100, StatusCompleted},
		{"over-reported clamps", 12, 8, 100, StatusCompleted},
		{"negative clamps", -1, 8, 0, StatusNotStarted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := progress(t, "first-aid", tt.completed, tt.total)
			assert.Equal(t, tt.wantPct, p.Percentage)
			assert.Equal(t, tt.want, p.Status)
		})
	}
}

func TestNewModuleProgress_Invalid(t *testing.T) {
	_, err := NewModuleProgress("first-aid", 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total units")

	_, err = NewModuleProgress("", 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module id")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusNotStarted, StatusFor(0))
	assert.Equal(t, StatusInProgress, StatusFor(1))
	assert.Equal(t, StatusInProgress, StatusFor(99))
	assert.Equal(t, StatusCompleted, StatusFor(100))
}

func TestEvaluate_Quiz(t *testing.T) {
	tests := []struct {
		name string
		ev   QuizCompleted
		want []BadgeID
	}{
		{"slow pass below 90", QuizCompleted{Score: 89.9, TimeSpent: 20 * time.Minute}, []BadgeID{}},
		{"exactly 90", QuizCompleted{Score: 90, TimeSpent: 15 * time.Minute}, []BadgeID{HighAchiever}},
		{"perfect and quick", QuizCompleted{Score: 100, TimeSpent: 899 * time.Second}, []BadgeID{HighAchiever, PerfectScore, QuickLearner}},
		{"quick threshold is strict", QuizCompleted{Score: 50, TimeSpent: 900 * time.Second}, []BadgeID{}},
		{"quick but failing", QuizCompleted{Score: 10, TimeSpent: time.Minute}, []BadgeID{QuickLearner}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(nil, tt.ev))
		})
	}
}

func TestEvaluate_Drill(t *testing.T) {
	assert.Equal(t, []BadgeID{DrillChampion, SafetyBaseline},
		Evaluate(nil, DrillCompleted{Score: 10, MaxScore: 10, Passed: true}))
	assert.Equal(t, []BadgeID{SafetyBaseline},
		Evaluate(nil, DrillCompleted{Score: 8, MaxScore: 10, Passed: true}))
	assert.Equal(t, []BadgeID{},
		Evaluate(nil, DrillCompleted{Score: 10, MaxScore: 10, Passed: false}))
}

func TestEvaluate_Milestones(t *testing.T) {
	snapshot := []ModuleProgress{
		progress(t, "m1", 4, 4),
		progress(t, "m2", 4, 4),
		progress(t, "m3", 1, 4),
	}

	got := Evaluate(snapshot, ModuleUpdated{Progress: progress(t, "m3", 4, 4)})
	assert.Equal(t, []BadgeID{FirstModule, ThreeModules, Dedicated, SafetyMaster}, got)

	got = Evaluate(snapshot, ModuleUpdated{Progress: progress(t, "m4", 0, 4)})
	assert.Equal(t, []BadgeID{FirstModule}, got, "average drops to 56.25")
}

func TestEvaluate_MilestonesOnAnyEvent(t *testing.T) {
	snapshot := []ModuleProgress{progress(t, "m1", 4, 4)}
	got := Evaluate(snapshot, QuizCompleted{Score: 20, TimeSpent: time.Hour})
	assert.Equal(t, []BadgeID{FirstModule, Dedicated, SafetyMaster}, got)
}

func TestEvaluate_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Evaluate(nil, QuizCompleted{Score: 0, TimeSpent: time.Hour}))
	assert.Empty(t, Evaluate([]ModuleProgress{}, DrillCompleted{}))
}

func TestEvaluate_DoesNotMutateSnapshot(t *testing.T) {
	snapshot := []ModuleProgress{progress(t, "m1", 1, 4)}
	Evaluate(snapshot, ModuleUpdated{Progress: progress(t, "m1", 4, 4)})
	assert.Equal(t, 25, snapshot[0].Percentage)
}

func TestAverageProgress(t *testing.T) {
	assert.Equal(t, 0.0, AverageProgress(nil))
	assert.Equal(t, 50.0, AverageProgress([]ModuleProgress{
		progress(t, "a", 0, 2),
		progress(t, "b", 2, 2),
	}))
}

func TestQuizFromResult(t *testing.T) {
	q := QuizFromResult("fire-101", scoring.Result{Percentage: 95, Passed: true, TimeSpentSeconds: 600})
	assert.Equal(t, "fire-101", q.AssessmentID)
	assert.Equal(t, 95.0, q.Score)
	assert.Equal(t, 10*time.Minute, q.TimeSpent)
}

func TestCategoryOf(t *testing.T) {
	c, ok := CategoryOf(FiveModules)
	assert.True(t, ok)
	assert.Equal(t, CategoryMilestone, c)

	_, ok = CategoryOf("gold-star")
	assert.False(t, ok)
}
