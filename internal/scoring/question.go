package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the question variants.
type Kind string

const (
	KindSingleSelect Kind = "single-select"
	KindMultiSelect  Kind = "multi-select"
	KindPractical    Kind = "practical"
)

// Question is one gradable item. The set of implementations is closed:
// SingleSelect, MultiSelect, and Practical.
type Question interface {
	QuestionID() string
	Kind() Kind
	// Weight is the number of points the question is worth.
	Weight() float64
	// fraction returns the earned share of the weight for answer, in [0, 1],
	// and whether the question takes part in grading at all.
	fraction(answer Answer) (float64, bool)
}

// SingleSelect is answered by exactly one value.
type SingleSelect struct {
	ID      string
	Points  float64
	Correct string
}

func (q SingleSelect) QuestionID() string { return q.ID }
func (q SingleSelect) Kind() Kind         { return KindSingleSelect }
func (q SingleSelect) Weight() float64    { return q.Points }

func (q SingleSelect) fraction(a Answer) (float64, bool) {
	if q.Points <= 0 || q.Correct == "" {
		return 0, false
	}
	if a.Choice == q.Correct {
		return 1, true
	}
	return 0, true
}

// MultiSelect earns partial credit proportional to how many of the correct
// options were selected. Extra selections are not penalised.
type MultiSelect struct {
	ID      string
	Points  float64
	Correct []string
}

func (q MultiSelect) QuestionID() string { return q.ID }
func (q MultiSelect) Kind() Kind         { return KindMultiSelect }
func (q MultiSelect) Weight() float64    { return q.Points }

func (q MultiSelect) fraction(a Answer) (float64, bool) {
	correct := make(map[string]struct{}, len(q.Correct))
	for _, c := range q.Correct {
		correct[c] = struct{}{}
	}
	if q.Points <= 0 || len(correct) == 0 {
		return 0, false
	}
	hits := make(map[string]struct{}, len(a.Choices))
	for _, c := range a.Choices {
		if _, ok := correct[c]; ok {
			hits[c] = struct{}{}
		}
	}
	return float64(len(hits)) / float64(len(correct)), true
}

// Practical is a hands-on task rated by an assessor on a 0..MaxRating scale.
type Practical struct {
	ID        string
	Points    float64
	MaxRating int
}

func (q Practical) QuestionID() string { return q.ID }
func (q Practical) Kind() Kind         { return KindPractical }
func (q Practical) Weight() float64    { return q.Points }

func (q Practical) fraction(a Answer) (float64, bool) {
	if q.Points <= 0 || q.MaxRating <= 0 {
		return 0, false
	}
	if a.Rating == nil {
		return 0, true
	}
	f := float64(*a.Rating) / float64(q.MaxRating)
	return min(max(f, 0), 1), true
}

// Answer is a learner's response. Which field is read depends on the kind of
// the question it answers; the others are ignored.
type Answer struct {
	Choice  string   `json:"choice,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Rating  *int     `json:"rating,omitempty"`
}

// Choice answers a single-select question.
func Choice(v string) Answer { return Answer{Choice: v} }

// Choices answers a multi-select question.
func Choices(v ...string) Answer { return Answer{Choices: v} }

// Rating answers a practical question.
func Rating(n int) Answer { return Answer{Rating: &n} }

// Submission maps question ids to answers.
type Submission map[string]Answer

// Assessment is an ordered question set with its grading policy.
type Assessment struct {
	ID        string
	Questions []Question
	// TimeLimit bounds the attempt; zero means unlimited.
	TimeLimit time.Duration
	// PassingScore is the minimum percentage required to pass.
	PassingScore float64
}

type questionJSON struct {
	ID            string          `json:"id"`
	Kind          Kind            `json:"kind"`
	Weight        float64         `json:"weight"`
	CorrectAnswer json.RawMessage `json:"correctAnswer,omitempty"`
	MaxRating     int             `json:"maxRating,omitempty"`
}

type assessmentJSON struct {
	ID               string         `json:"id"`
	Questions        []questionJSON `json:"questions"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	PassingScore     float64        `json:"passingScore"`
}

// DecodeAssessment parses an assessment definition, validating the fields each
// question kind requires.
func DecodeAssessment(data []byte) (Assessment, error) {
	var raw assessmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	if raw.TimeLimitSeconds < 0 {
		return Assessment{}, errors.New("decode assessment: negative time limit")
	}

	a := Assessment{
		ID:           raw.ID,
		Questions:    make([]Question, 0, len(raw.Questions)),
		TimeLimit:    time.Duration(raw.TimeLimitSeconds) * time.Second,
		PassingScore: raw.PassingScore,
	}
	seen := make(map[string]bool, len(raw.Questions))
	for _, q := range raw.Questions {
		if q.ID == "" {
			return Assessment{}, errors.New("decode assessment: question without id")
		}
		if seen[q.ID] {
			return Assessment{}, fmt.Errorf("decode assessment: duplicate question %q", q.ID)
		}
		seen[q.ID] = true
		if q.Weight < 0 {
			return Assessment{}, fmt.Errorf("decode assessment: question %q has negative weight", q.ID)
		}

		question, err := decodeQuestion(q)
		if err != nil {
			return Assessment{}, fmt.Errorf("decode assessment: question %q: %w", q.ID, err)
		}
		a.Questions = append(a.Questions, question)
	}
	return a, nil
}

func decodeQuestion(q questionJSON) (Question, error) {
	switch q.Kind {
	case KindSingleSelect:
		var correct string
		if err := json.Unmarshal(q.CorrectAnswer, &correct); err != nil {
			return nil, fmt.Errorf("single-select needs a string correctAnswer: %w", err)
		}
		return SingleSelect{ID: q.ID, Points: q.Weight, Correct: correct}, nil
	case KindMultiSelect:
		var correct []string
		if err := json.Unmarshal(q.CorrectAnswer, &correct); err != nil {
			return nil, fmt.Errorf("multi-select needs a list correctAnswer: %w", err)
		}
		return MultiSelect{ID: q.ID, Points: q.Weight, Correct: correct}, nil
	case KindPractical:
		return Practical{ID: q.ID, Points: q.Weight, MaxRating: q.MaxRating}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", q.Kind)
	}
}
