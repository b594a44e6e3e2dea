package hazard

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind names the rule that raised an alert.
type Kind string

const (
	KindWind          Kind = "wind"
	KindPrecipitation Kind = "precipitation"
	KindStorm         Kind = "storm"
	KindWinter        Kind = "winter"
)

// Severity uses the same four-level scale as storm report classification.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityExtreme  Severity = "extreme"
)

// Rank orders severities from least (1) to most (4) serious; unknown is 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	case SeverityExtreme:
		return 4
	default:
		return 0
	}
}

// Class separates warnings (act now) from advisories (be prepared).
type Class string

const (
	ClassWarning  Class = "warning"
	ClassAdvisory Class = "advisory"
)

// Sample is one weather observation. Nil fields were not reported.
type Sample struct {
	StationID     string    `json:"stationId,omitempty"`
	ObservedAt    time.Time `json:"observedAt,omitzero"`
	WindSpeed     *float64  `json:"windSpeed,omitempty"`
	WindGusts     *float64  `json:"windGusts,omitempty"`
	Precipitation *float64  `json:"precipitation,omitempty"`
	Rain          *float64  `json:"rain,omitempty"`
	WeatherCode   *int      `json:"weatherCode,omitempty"`
}

// ParseSample decodes a JSON sample.
func ParseSample(data []byte) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return Sample{}, fmt.Errorf("parse sample: %w", err)
	}
	return s, nil
}

// Alert is an immutable hazard warning derived from one sample.
type Alert struct {
	Kind        Kind      `json:"kind"`
	Severity    Severity  `json:"severity"`
	Class       Class     `json:"class"`
	StationID   string    `json:"stationId,omitempty"`
	EffectiveAt time.Time `json:"effectiveAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ActiveAt reports whether the alert is still in force at now.
func (a Alert) ActiveAt(now time.Time) bool {
	return !now.Before(a.EffectiveAt) && !now.After(a.ExpiresAt)
}

// Windows sets how long each kind of alert stays in force.
type Windows struct {
	Storm         time.Duration
	Wind          time.Duration
	Precipitation time.Duration
	Winter        time.Duration
}

// DefaultWindows are used for any window left at zero.
var DefaultWindows = Windows{
	Storm:         2 * time.Hour,
	Wind:          6 * time.Hour,
	Precipitation: 6 * time.Hour,
	Winter:        12 * time.Hour,
}

func (w Windows) of(k Kind) time.Duration {
	var d, def time.Duration
	switch k {
	case KindStorm:
		d, def = w.Storm, DefaultWindows.Storm
	case KindWind:
		d, def = w.Wind, DefaultWindows.Wind
	case KindPrecipitation:
		d, def = w.Precipitation, DefaultWindows.Precipitation
	case KindWinter:
		d, def = w.Winter, DefaultWindows.Winter
	}
	if d <= 0 {
		return def
	}
	return d
}

// Classifier applies the hazard rules.
type Classifier struct {
	windows Windows
}

// NewClassifier creates a Classifier with the given validity windows.
func NewClassifier(w Windows) *Classifier {
	return &Classifier{windows: w}
}

// Classify returns every alert the sample triggers, most severe first and
// then by kind. effectiveAt is used when the sample carries no observation
// time.
func (c *Classifier) Classify(s Sample, effectiveAt time.Time) []Alert {
	if !s.ObservedAt.IsZero() {
		effectiveAt = s.ObservedAt
	}
	effectiveAt = effectiveAt.UTC()

	var alerts []Alert
	add := func(k Kind, sev Severity, class Class) {
		alerts = append(alerts, Alert{
			Kind:        k,
			Severity:    sev,
			Class:       class,
			StationID:   s.StationID,
			EffectiveAt: effectiveAt,
			ExpiresAt:   effectiveAt.Add(c.windows.of(k)),
		})
	}

	if sev, ok := windRule(s); ok {
		add(KindWind, sev, ClassWarning)
	}
	if sev, ok := precipitationRule(s); ok {
		add(KindPrecipitation, sev, ClassWarning)
	}
	if sev, ok := stormRule(s); ok {
		add(KindStorm, sev, ClassWarning)
	}
	if winterRule(s) {
		add(KindWinter, SeverityModerate, ClassAdvisory)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return alerts[i].Kind < alerts[j].Kind
	})
	return alerts
}

func above(v *float64, threshold float64) bool {
	return v != nil && *v > threshold
}

func windRule(s Sample) (Severity, bool) {
	if !above(s.WindSpeed, 20) && !above(s.WindGusts, 30) {
		return "", false
	}
	if above(s.WindGusts, 50) {
		return SeveritySevere, true
	}
	return SeverityModerate, true
}

func precipitationRule(s Sample) (Severity, bool) {
	if !above(s.Precipitation, 10) && !above(s.Rain, 10) {
		return "", false
	}
	if above(s.Precipitation, 25) {
		return SeveritySevere, true
	}
	return SeverityModerate, true
}

func stormRule(s Sample) (Severity, bool) {
	if s.WeatherCode == nil || *s.WeatherCode < 95 {
		return "", false
	}
	if *s.WeatherCode > 95 {
		return SeveritySevere, true
	}
	return SeverityModerate, true
}

func winterRule(s Sample) bool {
	return s.WeatherCode != nil && *s.WeatherCode >= 71 && *s.WeatherCode <= 77
}

// Active returns the alerts still in force at now, preserving order.
func Active(alerts []Alert, now time.Time) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.ActiveAt(now) {
			out = append(out, a)
		}
	}
	return out
}
