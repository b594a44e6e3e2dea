package http

import (
	"encoding/json"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/storm-safety-training/internal/notify"
)

type feedResponse struct {
	Items  []notify.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

// handleListNotifications returns the feed, newest first. With
// ?surfaced=true only sticky entries awaiting dismissal are listed.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items := s.feed.Items()
	if r.URL.Query().Get("surfaced") == "true" {
		items = s.feed.Surfaced()
	}
	sharedobs.WriteJSON(w, http.StatusOK, feedResponse{Items: items, Unread: s.feed.Unread()})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	s.feed.MarkRead(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReadAll(w http.ResponseWriter, _ *http.Request) {
	s.feed.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.feed.Dismiss(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request) {
	var rem notify.Reminder
	if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder body")
		return
	}
	if rem.ModuleID == "" || rem.Title == "" {
		writeError(w, http.StatusBadRequest, "moduleId and title are required")
		return
	}
	n := s.feed.Push(r.Context(), notify.FromReminder(rem))
	sharedobs.WriteJSON(w, http.StatusCreated, n)
}
