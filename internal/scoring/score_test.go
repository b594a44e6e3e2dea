package scoring

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fireSafetyQuiz() Assessment {
	return Assessment{
		ID: "fire-safety-101",
		Questions: []Question{
			SingleSelect{ID: "q1", Points: 1, Correct: "B"},
			MultiSelect{ID: "q2", Points: 3, Correct: []string{"A", "B", "C"}},
			Practical{ID: "q3", Points: 2, MaxRating: 4},
		},
		TimeLimit:    10 * time.Minute,
		PassingScore: 70,
	}
}

func TestFraction(t *testing.T) {
	single := SingleSelect{ID: "s", Points: 1, Correct: "B"}
	multi := MultiSelect{ID: "m", Points: 1, Correct: []string{"A", "B", "C"}}
	practical := Practical{ID: "p", Points: 1, MaxRating: 5}

	tests := []struct {
		name   string
		q      Question
		answer Answer
		want   float64
	}{
		{"single correct", single, Choice("B"), 1},
		{"single wrong", single, Choice("C"), 0},
		{"single unanswered", single, Answer{}, 0},
		{"single wrong shape", single, Choices("B"), 0},
		{"multi partial", multi, Choices("A", "B"), 2.0 / 3.0},
		{"multi full", multi, Choices("C", "B", "A"), 1},
		{"multi extras not penalised", multi, Choices("A", "B", "C", "D", "E"), 1},
		{"multi duplicates counted once", multi, Choices("A", "A", "A"), 1.0 / 3.0},
		{"multi none right", multi, Choices("X"), 0},
		{"practical rating", practical, Rating(3), 0.6},
		{"practical over max clamps", practical, Rating(9), 1},
		{"practical negative clamps", practical, Rating(-2), 0},
		{"practical unrated", practical, Answer{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fraction(tt.q, tt.answer))
		})
	}
}

func TestScore_PartialCredit(t *testing.T) {
	a := fireSafetyQuiz()
	sub := Submission{
		"q1": Choice("B"),          // 1 of 1
		"q2": Choices("A", "B"),    // 2 of 3
		"q3": Rating(2),            // 1 of 2
		"q9": Choice("irrelevant"), // unknown question
	}

	r := Score(a, sub, 4*time.Minute)

	assert.InDelta(t, 100*4.0/6.0, r.Percentage, 1e-9)
	assert.False(t, r.Passed)
	assert.Equal(t, 240, r.TimeSpentSeconds)
}

func TestScore_Perfect(t *testing.T) {
	r := Score(fireSafetyQuiz(), Submission{
		"q1": Choice("B"),
		"q2": Choices("A", "B", "C"),
		"q3": Rating(4),
	}, time.Minute)

	assert.Equal(t, 100.0, r.Percentage)
	assert.True(t, r.Passed)
}

func TestScore_PassingThresholdIsInclusive(t *testing.T) {
	a := Assessment{
		Questions: []Question{
			SingleSelect{ID: "a", Points: 1, Correct: "x"},
			SingleSelect{ID: "b", Points: 1, Correct: "x"},
		},
		PassingScore: 50,
	}
	r := Score(a, Submission{"a": Choice("x")}, 0)
	assert.Equal(t, 50.0, r.Percentage)
	assert.True(t, r.Passed)
}

func TestScore_MissingAnswersEarnZero(t *testing.T) {
	r := Score(fireSafetyQuiz(), Submission{}, 0)
	assert.Equal(t, 0.0, r.Percentage)
	assert.False(t, r.Passed)
}

func TestScore_UngradableQuestionsExcluded(t *testing.T) {
	a := Assessment{
		Questions: []Question{
			SingleSelect{ID: "ok", Points: 2, Correct: "A"},
			MultiSelect{ID: "empty-key", Points: 5},
			SingleSelect{ID: "zero-weight", Points: 0, Correct: "A"},
			Practical{ID: "no-scale", Points: 3},
		},
		PassingScore: 80,
	}
	r := Score(a, Submission{"ok": Choice("A"), "empty-key": Choices("A")}, 0)

	assert.Equal(t, 100.0, r.Percentage)
	assert.True(t, r.Passed)
}

func TestScore_NoGradableQuestions(t *testing.T) {
	a := Assessment{Questions: []Question{MultiSelect{ID: "m", Points: 1}}, PassingScore: 50}
	r := Score(a, Submission{}, 0)
	assert.Equal(t, 0.0, r.Percentage)
	assert.False(t, r.Passed)
}

func TestScore_TimeSpentClamped(t *testing.T) {
	a := fireSafetyQuiz()

	assert.Equal(t, 0, Score(a, nil, -5*time.Second).TimeSpentSeconds)
	assert.Equal(t, 600, Score(a, nil, time.Hour).TimeSpentSeconds)

	a.TimeLimit = 0
	assert.Equal(t, 3600, Score(a, nil, time.Hour).TimeSpentSeconds)
}

func TestScore_Deterministic(t *testing.T) {
	a := fireSafetyQuiz()
	sub := Submission{"q1": Choice("A"), "q2": Choices("C"), "q3": Rating(3)}

	first := Score(a, sub, 90*time.Second)
	second := Score(a, sub, 90*time.Second)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("score changed between runs (-first +second):\n%s", diff)
	}
}

func TestDecodeAssessment(t *testing.T) {
	data := []byte(`{
		"id": "evacuation-drill",
		"timeLimitSeconds": 900,
		"passingScore": 75,
		"questions": [
			{"id": "q1", "kind": "single-select", "weight": 1, "correctAnswer": "stairs"},
			{"id": "q2", "kind": "multi-select", "weight": 2, "correctAnswer": ["exit", "assembly"]},
			{"id": "q3", "kind": "practical", "weight": 3, "maxRating": 5}
		]
	}`)

	a, err := DecodeAssessment(data)
	require.NoError(t, err)

	want := Assessment{
		ID: "evacuation-drill",
		Questions: []Question{
			SingleSelect{ID: "q1", Points: 1, Correct: "stairs"},
			MultiSelect{ID: "q2", Points: 2, Correct: []string{"exit", "assembly"}},
			Practical{ID: "q3", Points: 3, MaxRating: 5},
		},
		TimeLimit:    15 * time.Minute,
		PassingScore: 75,
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Fatalf("decoded assessment mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeAssessment_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad json", `{`, "decode assessment"},
		{"unknown kind", `{"questions":[{"id":"q","kind":"essay","weight":1}]}`, "unknown kind"},
		{"single with list", `{"questions":[{"id":"q","kind":"single-select","weight":1,"correctAnswer":["a"]}]}`, "single-select"},
		{"multi with string", `{"questions":[{"id":"q","kind":"multi-select","weight":1,"correctAnswer":"a"}]}`, "multi-select"},
		{"missing id", `{"questions":[{"kind":"practical","weight":1}]}`, "without id"},
		{"duplicate id", `{"questions":[{"id":"q","kind":"practical","weight":1},{"id":"q","kind":"practical","weight":1}]}`, "duplicate"},
		{"negative weight", `{"questions":[{"id":"q","kind":"practical","weight":-1}]}`, "negative weight"},
		{"negative limit", `{"timeLimitSeconds":-1}`, "negative time limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAssessment([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
