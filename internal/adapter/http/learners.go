package http

import (
	"encoding/json"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/storm-safety-training/internal/achievement"
	"github.com/couchcryptid/storm-safety-training/internal/scoring"
)

type badgesResponse struct {
	Badges []achievement.Badge `json:"badges"`
}

type progressResponse struct {
	Modules   []achievement.ModuleProgress `json:"modules"`
	Completed int                          `json:"completed"`
	Average   float64                      `json:"average"`
}

type grantResponse struct {
	Result *scoring.Result     `json:"result,omitempty"`
	Badges []achievement.Badge `json:"badges"`
}

type moduleRequest struct {
	CompletedUnits int `json:"completedUnits"`
	TotalUnits     int `json:"totalUnits"`
}

type attemptRequest struct {
	Assessment json.RawMessage `json:"assessment"`
}

type drillRequest struct {
	DrillID  string  `json:"drillId"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
	Passed   bool    `json:"passed"`
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	badges := s.learners.Badges(r.Context(), r.PathValue("id"))
	sharedobs.WriteJSON(w, http.StatusOK, badgesResponse{Badges: badges})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	modules := s.learners.Progress(r.Context(), r.PathValue("id"))
	sharedobs.WriteJSON(w, http.StatusOK, progressResponse{
		Modules:   modules,
		Completed: achievement.CompletedCount(modules),
		Average:   achievement.AverageProgress(modules),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"results": s.learners.Results(r.Context(), r.PathValue("id")),
	})
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	var req moduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid module body")
		return
	}
	p, err := achievement.NewModuleProgress(r.PathValue("module"), req.CompletedUnits, req.TotalUnits)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, achievement.ModuleUpdated{Progress: p}, nil)
}

// handleStartAttempt opens a timed attempt. The assessment carries its own
// answer key; time spent is measured by the server from this call.
func (s *Server) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Assessment) == 0 {
		writeError(w, http.StatusBadRequest, "invalid attempt body")
		return
	}
	assessment, err := scoring.DecodeAssessment(req.Assessment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opened := s.attempts.Start(r.PathValue("id"), assessment)
	sharedobs.WriteJSON(w, http.StatusCreated, opened)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var answer scoring.Answer
	if err := json.NewDecoder(r.Body).Decode(&answer); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer body")
		return
	}
	found, accepted := s.attempts.Record(r.PathValue("id"), r.PathValue("attempt"), r.PathValue("question"), answer)
	switch {
	case !found:
		writeError(w, http.StatusNotFound, "attempt not found")
	case !accepted:
		writeError(w, http.StatusConflict, "attempt is past its deadline")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSubmit grades the attempt with the recorded answers and feeds the
// result to the achievement engine.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	assessment, result, ok := s.attempts.Finish(r.PathValue("id"), r.PathValue("attempt"))
	if !ok {
		writeError(w, http.StatusNotFound, "attempt not found")
		return
	}
	s.apply(w, r, achievement.QuizFromResult(assessment.ID, result), &result)
}

func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	var req drillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid drill body")
		return
	}
	if req.DrillID == "" || req.MaxScore <= 0 {
		writeError(w, http.StatusBadRequest, "drillId and a positive maxScore are required")
		return
	}
	s.apply(w, r, achievement.DrillCompleted{
		DrillID:  req.DrillID,
		Score:    req.Score,
		MaxScore: req.MaxScore,
		Passed:   req.Passed,
	}, nil)
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, ev achievement.Event, result *scoring.Result) {
	granted, err := s.learners.Apply(r.Context(), r.PathValue("id"), ev)
	if err != nil {
		s.logger.Error("apply learner event failed", "learner_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "could not record activity")
		return
	}
	if granted == nil {
		granted = []achievement.Badge{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, grantResponse{Result: result, Badges: granted})
}
