// Package notify keeps the bounded, deduplicated notification feed that hazard
// alerts, badge grants, and training reminders are pushed onto.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/storm-safety-training/internal/achievement"
	"github.com/couchcryptid/storm-safety-training/internal/hazard"
)

// Kind says what produced a notification.
type Kind string

const (
	KindHazard   Kind = "hazard"
	KindBadge    Kind = "badge"
	KindReminder Kind = "reminder"
)

// Severity is the feed's urgency scale.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Escalates reports whether the severity triggers the escalation side effect.
func (s Severity) Escalates() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Notification is one feed entry. Key, when set, deduplicates: a push with
// the same key replaces the retained entry.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Key       string    `json:"key,omitempty"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	LearnerID string    `json:"learnerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
	Sticky    bool      `json:"sticky"`
}

var hazardSeverity = map[hazard.Severity]Severity{
	hazard.SeverityMinor:    SeverityLow,
	hazard.SeverityModerate: SeverityMedium,
	hazard.SeveritySevere:   SeverityHigh,
	hazard.SeverityExtreme:  SeverityCritical,
}

// FromAlert converts a hazard alert. Alerts of the same kind share a key, so
// a newer wind alert replaces an older one.
func FromAlert(a hazard.Alert) Notification {
	sev, ok := hazardSeverity[a.Severity]
	if !ok {
		sev = SeverityLow
	}

	title := fmt.Sprintf("%s %s %s", titleCase(string(a.Severity)), a.Kind, a.Class)
	msg := fmt.Sprintf("%s %s in effect until %s.",
		titleCase(string(a.Kind)), a.Class, a.ExpiresAt.UTC().Format("Jan 2 15:04 MST"))
	if a.StationID != "" {
		msg = fmt.Sprintf("%s %s at station %s in effect until %s.",
			titleCase(string(a.Kind)), a.Class, a.StationID, a.ExpiresAt.UTC().Format("Jan 2 15:04 MST"))
	}

	return Notification{
		Kind:     KindHazard,
		Key:      "hazard:" + string(a.Kind),
		Severity: sev,
		Title:    title,
		Message:  msg,
	}
}

// FromBadge converts a newly earned badge.
func FromBadge(learnerID string, b achievement.Badge) Notification {
	return Notification{
		Kind:      KindBadge,
		Key:       "badge:" + learnerID + ":" + string(b.ID),
		Severity:  SeverityLow,
		Title:     "Badge earned",
		Message:   fmt.Sprintf("You earned the %s badge (%s).", b.ID, b.Category),
		LearnerID: learnerID,
		CreatedAt: b.EarnedAt,
	}
}

// Reminder asks a learner to return to an unfinished module.
type Reminder struct {
	LearnerID string    `json:"learnerId,omitempty"`
	ModuleID  string    `json:"moduleId"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"dueAt,omitzero"`
}

// FromReminder converts a training reminder. One reminder per module is kept.
func FromReminder(r Reminder) Notification {
	msg := fmt.Sprintf("Continue %q.", r.Title)
	if !r.DueAt.IsZero() {
		msg = fmt.Sprintf("Complete %q by %s.", r.Title, r.DueAt.UTC().Format("Jan 2 2006"))
	}
	return Notification{
		Kind:      KindReminder,
		Key:       "reminder:" + r.ModuleID,
		Severity:  SeverityMedium,
		Title:     "Training reminder",
		Message:   msg,
		LearnerID: r.LearnerID,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
