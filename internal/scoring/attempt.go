package scoring

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Attempt is a timed sitting of an assessment. Answers are accepted until the
// deadline; after it the attempt grades whatever was recorded in time.
type Attempt struct {
	assessment Assessment
	clock      clockwork.Clock
	startedAt  time.Time

	mu      sync.Mutex
	answers Submission
	result  *Result
}

// Start opens an attempt at the clock's current time.
func Start(a Assessment, clock clockwork.Clock) *Attempt {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Attempt{
		assessment: a,
		clock:      clock,
		startedAt:  clock.Now(),
		answers:    make(Submission, len(a.Questions)),
	}
}

// StartedAt reports when the attempt began.
func (at *Attempt) StartedAt() time.Time { return at.startedAt }

// Deadline reports when the attempt stops accepting answers. It is the zero
// time for untimed assessments.
func (at *Attempt) Deadline() time.Time {
	if at.assessment.TimeLimit <= 0 {
		return time.Time{}
	}
	return at.startedAt.Add(at.assessment.TimeLimit)
}

// Expired reports whether the time limit has passed.
func (at *Attempt) Expired() bool {
	d := at.Deadline()
	return !d.IsZero() && at.clock.Now().After(d)
}

// Record stores an answer, replacing any earlier one for the same question.
// It reports false if the attempt is finalized or past its deadline.
func (at *Attempt) Record(questionID string, answer Answer) bool {
	at.mu.Lock()
	defer at.mu.Unlock()
	if at.result != nil || at.Expired() {
		return false
	}
	at.answers[questionID] = answer
	return true
}

// Submit finalizes the attempt and grades it. Later calls return the same
// result.
func (at *Attempt) Submit() Result {
	at.mu.Lock()
	defer at.mu.Unlock()
	return at.finalize()
}

// FinalizeIfExpired grades the attempt if its deadline has passed.
func (at *Attempt) FinalizeIfExpired() (Result, bool) {
	at.mu.Lock()
	defer at.mu.Unlock()
	if at.result == nil && !at.Expired() {
		return Result{}, false
	}
	return at.finalize(), true
}

func (at *Attempt) finalize() Result {
	if at.result != nil {
		return *at.result
	}
	r := Score(at.assessment, at.answers, at.clock.Since(at.startedAt))
	at.result = &r
	return r
}
