package achievement

import "time"

const (
	highAchieverScore = 90
	perfectScore      = 100
	quickLearnerLimit = 900 * time.Second

	dedicatedAverage = 80
	masterAverage    = 100
)

// milestoneCounts maps completed-module counts to their badges.
var milestoneCounts = []struct {
	count int
	badge BadgeID
}{
	{1, FirstModule},
	{3, ThreeModules},
	{5, FiveModules},
}

// Evaluate returns every badge the learner qualifies for given their progress
// snapshot and the latest event, in catalog order. It has no side effects;
// badges already held are included and filtered out at award time.
func Evaluate(snapshot []ModuleProgress, ev Event) []BadgeID {
	qualified := map[BadgeID]bool{}

	switch e := ev.(type) {
	case QuizCompleted:
		if e.Score >= highAchieverScore {
			qualified[HighAchiever] = true
		}
		if e.Score == perfectScore {
			qualified[PerfectScore] = true
		}
		if e.TimeSpent < quickLearnerLimit {
			qualified[QuickLearner] = true
		}
	case DrillCompleted:
		if e.Passed {
			qualified[SafetyBaseline] = true
			if e.Score == e.MaxScore {
				qualified[DrillChampion] = true
			}
		}
	case ModuleUpdated:
		snapshot = withProgress(snapshot, e.Progress)
	}

	for _, id := range milestones(snapshot) {
		qualified[id] = true
	}

	out := make([]BadgeID, 0, len(qualified))
	for _, b := range catalog {
		if qualified[b.id] {
			out = append(out, b.id)
		}
	}
	return out
}

func milestones(snapshot []ModuleProgress) []BadgeID {
	if len(snapshot) == 0 {
		return nil
	}

	var out []BadgeID
	completed := CompletedCount(snapshot)
	for _, m := range milestoneCounts {
		if completed >= m.count {
			out = append(out, m.badge)
		}
	}

	avg := AverageProgress(snapshot)
	if avg >= dedicatedAverage {
		out = append(out, Dedicated)
	}
	if avg >= masterAverage {
		out = append(out, SafetyMaster)
	}
	return out
}

// CompletedCount counts modules whose status is completed.
func CompletedCount(snapshot []ModuleProgress) int {
	n := 0
	for _, p := range snapshot {
		if p.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// AverageProgress is the unweighted mean of module percentages; 0 for an
// empty snapshot.
func AverageProgress(snapshot []ModuleProgress) float64 {
	if len(snapshot) == 0 {
		return 0
	}
	sum := 0
	for _, p := range snapshot {
		sum += p.Percentage
	}
	return float64(sum) / float64(len(snapshot))
}

// withProgress returns a copy of snapshot with p inserted or replacing the
// entry for the same module.
func withProgress(snapshot []ModuleProgress, p ModuleProgress) []ModuleProgress {
	out := make([]ModuleProgress, 0, len(snapshot)+1)
	replaced := false
	for _, existing := range snapshot {
		if existing.ModuleID == p.ModuleID {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}
