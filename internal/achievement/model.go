package achievement

import (
	"errors"
	"math"
	"time"

	"github.com/couchcryptid/storm-safety-training/internal/scoring"
)

// BadgeID identifies a badge; a learner holds at most one of each.
type BadgeID string

const (
	HighAchiever   BadgeID = "high-achiever"
	PerfectScore   BadgeID = "perfect-score"
	QuickLearner   BadgeID = "quick-learner"
	DrillChampion  BadgeID = "drill-champion"
	SafetyBaseline BadgeID = "safety-baseline"
	FirstModule    BadgeID = "first-module"
	ThreeModules   BadgeID = "three-modules"
	FiveModules    BadgeID = "five-modules"
	Dedicated      BadgeID = "dedicated-learner"
	SafetyMaster   BadgeID = "safety-master"
)

// Category groups badges for progress summaries.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryDrill       Category = "drill"
	CategoryMilestone   Category = "milestone"
	CategoryMastery     Category = "mastery"
)

// catalog lists every badge in display order.
var catalog = []struct {
	id       BadgeID
	category Category
}{
	{HighAchiever, CategoryPerformance},
	{PerfectScore, CategoryPerformance},
	{QuickLearner, CategoryPerformance},
	{DrillChampion, CategoryDrill},
	{SafetyBaseline, CategoryDrill},
	{FirstModule, CategoryMilestone},
	{ThreeModules, CategoryMilestone},
	{FiveModules, CategoryMilestone},
	{Dedicated, CategoryMastery},
	{SafetyMaster, CategoryMastery},
}

// CategoryOf returns the category of a known badge.
func CategoryOf(id BadgeID) (Category, bool) {
	for _, b := range catalog {
		if b.id == id {
			return b.category, true
		}
	}
	return "", false
}

// Badge is an earned credential.
type Badge struct {
	ID       BadgeID   `json:"id"`
	Category Category  `json:"category"`
	EarnedAt time.Time `json:"earnedAt"`
}

func (b Badge) RecordID() string { return string(b.ID) }

func (b Badge) WithID(id string) Badge {
	b.ID = BadgeID(id)
	return b
}

// ModuleStatus is derived from completion percentage.
type ModuleStatus string

const (
	StatusNotStarted ModuleStatus = "not-started"
	StatusInProgress ModuleStatus = "in-progress"
	StatusCompleted  ModuleStatus = "completed"
)

// StatusFor maps a completion percentage to a status.
func StatusFor(percentage int) ModuleStatus {
	switch {
	case percentage <= 0:
		return StatusNotStarted
	case percentage >= 100:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// ModuleProgress is a learner's completion state for one training module.
type ModuleProgress struct {
	ModuleID       string       `json:"moduleId"`
	CompletedUnits int          `json:"completedUnits"`
	TotalUnits     int          `json:"totalUnits"`
	Percentage     int          `json:"percentage"`
	Status         ModuleStatus `json:"status"`
}

// NewModuleProgress computes percentage and status from unit counts.
// completed is clamped to [0, total].
func NewModuleProgress(moduleID string, completed, total int) (ModuleProgress, error) {
	if moduleID == "" {
		return ModuleProgress{}, errors.New("module id is required")
	}
	if total <= 0 {
		return ModuleProgress{}, errors.New("total units must be greater than zero")
	}
	completed = min(max(completed, 0), total)
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	return ModuleProgress{
		ModuleID:       moduleID,
		CompletedUnits: completed,
		TotalUnits:     total,
		Percentage:     pct,
		Status:         StatusFor(pct),
	}, nil
}

func (p ModuleProgress) RecordID() string { return p.ModuleID }

func (p ModuleProgress) WithID(id string) ModuleProgress {
	p.ModuleID = id
	return p
}

// Event is a learner activity the engine reacts to: QuizCompleted,
// DrillCompleted, or ModuleUpdated.
type Event interface {
	eventKind() string
}

// QuizCompleted carries a graded quiz.
type QuizCompleted struct {
	AssessmentID string
	Score        float64
	TimeSpent    time.Duration
}

func (QuizCompleted) eventKind() string { return "quiz" }

// QuizFromResult adapts a scoring result.
func QuizFromResult(assessmentID string, r scoring.Result) QuizCompleted {
	return QuizCompleted{
		AssessmentID: assessmentID,
		Score:        r.Percentage,
		TimeSpent:    time.Duration(r.TimeSpentSeconds) * time.Second,
	}
}

// DrillCompleted carries the outcome of a practical safety drill.
type DrillCompleted struct {
	DrillID  string
	Score    float64
	MaxScore float64
	Passed   bool
}

func (DrillCompleted) eventKind() string { return "drill" }

// ModuleUpdated replaces the learner's progress for one module.
type ModuleUpdated struct {
	Progress ModuleProgress
}

func (ModuleUpdated) eventKind() string { return "module" }

// ResultRecord is the persisted history entry for a quiz or drill.
type ResultRecord struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	RefID            string    `json:"refId"`
	Score            float64   `json:"score"`
	Passed           bool      `json:"passed"`
	TimeSpentSeconds int       `json:"timeSpentSeconds,omitempty"`
	RecordedAt       time.Time `json:"recordedAt"`
}

func (r ResultRecord) RecordID() string { return r.ID }

func (r ResultRecord) WithID(id string) ResultRecord {
	r.ID = id
	return r
}
