// Command classify runs the hazard classifier over a weather sample fixture
// and checks the resulting alerts and feed notifications for consistency. It
// is the offline counterpart of the service's sample pipeline.
//
// Usage:
//
//	go run ./cmd/classify \
//	  -samples data/mock/weather_samples.json \
//	  -at 2024-04-26T20:00:00Z
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/storm-safety-training/internal/hazard"
	"github.com/couchcryptid/storm-safety-training/internal/notify"
	"github.com/couchcryptid/storm-safety-training/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// classified pairs a sample with the alerts it raised.
type classified struct {
	index  int
	sample hazard.Sample
	alerts []hazard.Alert
}

func main() {
	samplesPath := flag.String("samples", "", "path to a JSON array of weather samples")
	at := flag.String("at", "", "RFC3339 time at which to list active alerts (default: now)")
	verbose := flag.Bool("v", false, "log every classified sample")
	flag.Parse()

	if *samplesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := observability.NewLoggerTo(os.Stderr, level, "text")

	now := time.Now().UTC()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: parse -at: %v\n", err)
			os.Exit(1)
		}
		now = t.UTC()
	}

	if code := run(*samplesPath, now, logger); code != 0 {
		os.Exit(code)
	}
}

func run(path string, now time.Time, logger *slog.Logger) int {
	fmt.Println("=== Hazard Classification Check ===")
	fmt.Println()

	samples, err := loadSamples(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load samples: %v\n", err)
		return 1
	}

	classifier := hazard.NewClassifier(hazard.DefaultWindows)
	results := make([]classified, 0, len(samples))
	for i, s := range samples {
		alerts := classifier.Classify(s, now)
		logger.Debug("sample classified", "index", i, "station_id", s.StationID, "alerts", len(alerts))
		results = append(results, classified{index: i, sample: s, alerts: alerts})
	}

	phases := []*phase{
		validateSamples(samples),
		validateAlerts(results),
		validateNotifications(results),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	printActive(results, now)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nClassification check FAILED.")
	return 1
}

func loadSamples(path string) ([]hazard.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var samples []hazard.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// ── Phase 1: Samples ──

func validateSamples(samples []hazard.Sample) *phase {
	p := &phase{name: "Phase 1: Sample Fields"}
	for i, s := range samples {
		if s.StationID == "" {
			p.errorf("sample %d: stationId is empty", i)
		}
		if s.ObservedAt.IsZero() {
			p.errorf("sample %d: observedAt is missing", i)
		}
		for name, v := range map[string]*float64{
			"windSpeed":     s.WindSpeed,
			"windGusts":     s.WindGusts,
			"precipitation": s.Precipitation,
			"rain":          s.Rain,
		} {
			if v != nil && *v < 0 {
				p.errorf("sample %d: %s is negative (%g)", i, name, *v)
			}
		}
		if s.WeatherCode != nil && (*s.WeatherCode < 0 || *s.WeatherCode > 99) {
			p.errorf("sample %d: weatherCode %d outside 0-99", i, *s.WeatherCode)
		}
	}
	return p
}

// ── Phase 2: Alerts ──

func validateAlerts(results []classified) *phase {
	p := &phase{name: "Phase 2: Alert Integrity"}
	for _, r := range results {
		seen := map[hazard.Kind]bool{}
		for j, a := range r.alerts {
			if seen[a.Kind] {
				p.errorf("sample %d: duplicate %s alert", r.index, a.Kind)
			}
			seen[a.Kind] = true

			if a.Severity.Rank() == 0 {
				p.errorf("sample %d: %s alert has unknown severity %q", r.index, a.Kind, a.Severity)
			}
			if !a.ExpiresAt.After(a.EffectiveAt) {
				p.errorf("sample %d: %s alert expires at or before it takes effect", r.index, a.Kind)
			}
			if a.StationID != r.sample.StationID {
				p.errorf("sample %d: %s alert station %q, sample station %q", r.index, a.Kind, a.StationID, r.sample.StationID)
			}
			wantClass := hazard.ClassWarning
			if a.Kind == hazard.KindWinter {
				wantClass = hazard.ClassAdvisory
			}
			if a.Class != wantClass {
				p.errorf("sample %d: %s alert class %q, expected %q", r.index, a.Kind, a.Class, wantClass)
			}
			if j > 0 && a.Severity.Rank() > r.alerts[j-1].Severity.Rank() {
				p.errorf("sample %d: alerts not ordered by severity", r.index)
			}
		}
	}
	return p
}

// ── Phase 3: Notifications ──

func validateNotifications(results []classified) *phase {
	p := &phase{name: "Phase 3: Feed Notifications"}
	for _, r := range results {
		for _, a := range r.alerts {
			n := notify.FromAlert(a)
			if n.Kind != notify.KindHazard {
				p.errorf("sample %d: %s notification kind %q", r.index, a.Kind, n.Kind)
			}
			if n.Key != "hazard:"+string(a.Kind) {
				p.errorf("sample %d: %s notification key %q", r.index, a.Kind, n.Key)
			}
			if n.Title == "" || n.Message == "" {
				p.errorf("sample %d: %s notification has empty text", r.index, a.Kind)
			}
			if n.Severity.Escalates() != (a.Severity.Rank() >= hazard.SeveritySevere.Rank()) {
				p.errorf("sample %d: %s alert %q maps to %q", r.index, a.Kind, a.Severity, n.Severity)
			}
		}
	}
	return p
}

func printActive(results []classified, now time.Time) {
	var all []hazard.Alert
	for _, r := range results {
		all = append(all, r.alerts...)
	}
	active := hazard.Active(all, now)

	fmt.Println()
	fmt.Printf("Samples: %d, alerts: %d, active at %s: %d\n",
		len(results), len(all), now.Format(time.RFC3339), len(active))
	for _, a := range active {
		n := notify.FromAlert(a)
		fmt.Printf("  [%-8s] %s\n", n.Severity, n.Message)
	}
}
