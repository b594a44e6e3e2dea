package scoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Registry tracks open attempts by id. Time spent is always measured on the
// registry's clock from Start to Finish.
type Registry struct {
	clock clockwork.Clock

	mu       sync.Mutex
	attempts map[string]*openAttempt
}

type openAttempt struct {
	learnerID string
	attempt   *Attempt
}

// Opened describes a newly started attempt.
type Opened struct {
	ID        string    `json:"attemptId"`
	StartedAt time.Time `json:"startedAt"`
	Deadline  time.Time `json:"deadline,omitzero"`
}

// NewRegistry creates an empty Registry.
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{clock: clock, attempts: make(map[string]*openAttempt)}
}

// Start opens an attempt at a for learnerID.
func (r *Registry) Start(learnerID string, a Assessment) Opened {
	at := Start(a, r.clock)
	id := uuid.NewString()

	r.mu.Lock()
	r.attempts[id] = &openAttempt{learnerID: learnerID, attempt: at}
	r.mu.Unlock()

	return Opened{ID: id, StartedAt: at.StartedAt().UTC(), Deadline: at.Deadline().UTC()}
}

func (r *Registry) lookup(learnerID, id string) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	open, ok := r.attempts[id]
	if !ok || open.learnerID != learnerID {
		return nil, false
	}
	return open.attempt, true
}

// Record stores an answer on an open attempt. found is false for an unknown
// attempt; accepted is false once the attempt is past its deadline.
func (r *Registry) Record(learnerID, id, questionID string, answer Answer) (found, accepted bool) {
	at, ok := r.lookup(learnerID, id)
	if !ok {
		return false, false
	}
	return true, at.Record(questionID, answer)
}

// Finish grades the attempt and closes it. A late finish grades only the
// answers recorded before the deadline. It reports false for an unknown or
// already finished attempt.
func (r *Registry) Finish(learnerID, id string) (Assessment, Result, bool) {
	r.mu.Lock()
	open, ok := r.attempts[id]
	if !ok || open.learnerID != learnerID {
		r.mu.Unlock()
		return Assessment{}, Result{}, false
	}
	delete(r.attempts, id)
	r.mu.Unlock()

	return open.attempt.assessment, open.attempt.Submit(), true
}

// Prune drops attempts started more than maxAge ago and returns how many were
// dropped.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := r.clock.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, open := range r.attempts {
		if open.attempt.StartedAt().Before(cutoff) {
			delete(r.attempts, id)
			n++
		}
	}
	return n
}

// Open counts attempts not yet finished or pruned.
func (r *Registry) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}
