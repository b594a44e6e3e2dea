package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-safety-training/internal/achievement"
	"github.com/couchcryptid/storm-safety-training/internal/notify"
	"github.com/couchcryptid/storm-safety-training/internal/scoring"
)

// Feed is the notification feed served under /notifications.
type Feed interface {
	Push(ctx context.Context, n notify.Notification) notify.Notification
	Items() []notify.Notification
	Unread() int
	Surfaced() []notify.Notification
	MarkRead(id string)
	MarkAllRead()
	Dismiss(id string)
}

// Learners records learner activity and reports achievements.
type Learners interface {
	Apply(ctx context.Context, learnerID string, ev achievement.Event) ([]achievement.Badge, error)
	Badges(ctx context.Context, learnerID string) []achievement.Badge
	Progress(ctx context.Context, learnerID string) []achievement.ModuleProgress
	Results(ctx context.Context, learnerID string) []achievement.ResultRecord
}

// Attempts holds timed assessment attempts.
type Attempts interface {
	Start(learnerID string, a scoring.Assessment) scoring.Opened
	Record(learnerID, id, questionID string, answer scoring.Answer) (found, accepted bool)
	Finish(learnerID, id string) (scoring.Assessment, scoring.Result, bool)
}

// Server exposes the feed and learner APIs plus health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	feed       Feed
	learners   Learners
	attempts   Attempts
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, ready sharedobs.ReadinessChecker, feed Feed, learners Learners, attempts Attempts, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		feed:     feed,
		learners: learners,
		attempts: attempts,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /notifications", s.handleListNotifications)
	mux.HandleFunc("POST /notifications/read-all", s.handleReadAll)
	mux.HandleFunc("POST /notifications/{id}/read", s.handleRead)
	mux.HandleFunc("DELETE /notifications/{id}", s.handleDismiss)
	mux.HandleFunc("POST /reminders", s.handleReminder)

	mux.HandleFunc("GET /learners/{id}/badges", s.handleBadges)
	mux.HandleFunc("GET /learners/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /learners/{id}/results", s.handleResults)
	mux.HandleFunc("PUT /learners/{id}/modules/{module}", s.handleModule)
	mux.HandleFunc("POST /learners/{id}/attempts", s.handleStartAttempt)
	mux.HandleFunc("PUT /learners/{id}/attempts/{attempt}/answers/{question}", s.handleAnswer)
	mux.HandleFunc("POST /learners/{id}/attempts/{attempt}/submit", s.handleSubmit)
	mux.HandleFunc("POST /learners/{id}/drills", s.handleDrill)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
