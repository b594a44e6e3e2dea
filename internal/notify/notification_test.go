package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/storm-safety-training/internal/hazard"
)

func TestFromAlert_SeverityMapping(t *testing.T) {
	tests := []struct {
		in   hazard.Severity
		want Severity
	}{
		{hazard.SeverityMinor, SeverityLow},
		{hazard.SeverityModerate, SeverityMedium},
		{hazard.SeveritySevere, SeverityHigh},
		{hazard.SeverityExtreme, SeverityCritical},
		{"unknown", SeverityLow},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			n := FromAlert(hazard.Alert{Kind: hazard.KindWind, Severity: tt.in, Class: hazard.ClassWarning})
			assert.Equal(t, tt.want, n.Severity)
		})
	}
}

func TestFromAlert_Content(t *testing.T) {
	expires := time.Date(2024, time.June, 3, 18, 30, 0, 0, time.UTC)
	n := FromAlert(hazard.Alert{
		Kind:      hazard.KindStorm,
		Severity:  hazard.SeveritySevere,
		Class:     hazard.ClassWarning,
		StationID: "KOUN",
		ExpiresAt: expires,
	})

	assert.Equal(t, KindHazard, n.Kind)
	assert.Equal(t, "hazard:storm", n.Key)
	assert.Equal(t, "Severe storm warning", n.Title)
	assert.Equal(t, "Storm warning at station KOUN in effect until Jun 3 18:30 UTC.", n.Message)
	assert.Empty(t, n.ID, "ids are assigned on push")
}

func TestFromAlert_NoStation(t *testing.T) {
	n := FromAlert(hazard.Alert{
		Kind:      hazard.KindWinter,
		Severity:  hazard.SeverityModerate,
		Class:     hazard.ClassAdvisory,
		ExpiresAt: time.Date(2024, time.January, 9, 6, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "Moderate winter advisory", n.Title)
	assert.Equal(t, "Winter advisory in effect until Jan 9 06:00 UTC.", n.Message)
}

func TestFromReminder(t *testing.T) {
	n := FromReminder(Reminder{LearnerID: "l1", ModuleID: "evac", Title: "Evacuation routes"})
	assert.Equal(t, KindReminder, n.Kind)
	assert.Equal(t, "reminder:evac", n.Key)
	assert.Equal(t, SeverityMedium, n.Severity)
	assert.Equal(t, `Continue "Evacuation routes".`, n.Message)

	n = FromReminder(Reminder{ModuleID: "evac", Title: "Evacuation routes", DueAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, `Complete "Evacuation routes" by Mar 1 2024.`, n.Message)
}

func TestSeverityEscalates(t *testing.T) {
	assert.False(t, SeverityLow.Escalates())
	assert.False(t, SeverityMedium.Escalates())
	assert.True(t, SeverityHigh.Escalates())
	assert.True(t, SeverityCritical.Escalates())
}
