// Command genmock generates a reproducible weather sample fixture using the
// same generator as the service's simulated feed, and prints the alert counts
// the classifier raises for it so test assertions can be updated.
//
// Usage:
//
//	go run ./cmd/genmock -n 200 -seed 42 -out data/mock/weather_samples.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/feed"
	"github.com/couchcryptid/storm-safety-training/internal/hazard"
)

var baseTime = time.Date(2024, time.April, 26, 18, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 200, "number of samples to generate")
	seed := flag.Uint64("seed", 42, "generator seed")
	step := flag.Duration("step", 10*time.Minute, "time between consecutive samples")
	out := flag.String("out", "", "output path for the JSON fixture")
	flag.Parse()

	if *out == "" || *n <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out and a positive -n")
	}

	// A fixed clock keeps observedAt stamps reproducible.
	clock := clockwork.NewFakeClockAt(baseTime)
	gen := feed.NewSeeded(*seed, clock)

	samples := make([]hazard.Sample, 0, *n)
	for range *n {
		samples = append(samples, gen.Next())
		clock.Advance(*step)
	}
	log.Printf("generated %d samples (seed=%d)", len(samples), *seed)

	if err := writeJSON(*out, samples); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(samples)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated counts for printStats reporting.
type statsResult struct {
	kindCounts     map[hazard.Kind]int
	severityCounts map[hazard.Severity]int
	stationCounts  map[string]int
	quiet          int
	alerts         int
}

func collectStats(samples []hazard.Sample) statsResult {
	s := statsResult{
		kindCounts:     map[hazard.Kind]int{},
		severityCounts: map[hazard.Severity]int{},
		stationCounts:  map[string]int{},
	}
	classifier := hazard.NewClassifier(hazard.DefaultWindows)
	for i := range samples {
		alerts := classifier.Classify(samples[i], samples[i].ObservedAt)
		if len(alerts) == 0 {
			s.quiet++
			continue
		}
		s.stationCounts[samples[i].StationID] += len(alerts)
		s.alerts += len(alerts)
		for _, a := range alerts {
			s.kindCounts[a.Kind]++
			s.severityCounts[a.Severity]++
		}
	}
	return s
}

type stationCount struct {
	station string
	count   int
}

func printStats(samples []hazard.Sample) {
	stats := collectStats(samples)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Samples: %d (quiet=%d)\n", len(samples), stats.quiet)
	fmt.Printf("Alerts: %d\n", stats.alerts)
	fmt.Printf("By kind: wind=%d, precipitation=%d, storm=%d, winter=%d\n",
		stats.kindCounts[hazard.KindWind], stats.kindCounts[hazard.KindPrecipitation],
		stats.kindCounts[hazard.KindStorm], stats.kindCounts[hazard.KindWinter])
	fmt.Printf("By severity: minor=%d, moderate=%d, severe=%d, extreme=%d\n",
		stats.severityCounts[hazard.SeverityMinor], stats.severityCounts[hazard.SeverityModerate],
		stats.severityCounts[hazard.SeveritySevere], stats.severityCounts[hazard.SeverityExtreme])

	sc := make([]stationCount, 0, len(stats.stationCounts))
	for s, c := range stats.stationCounts {
		sc = append(sc, stationCount{s, c})
	}
	sort.Slice(sc, func(i, j int) bool {
		if sc[i].count != sc[j].count {
			return sc[i].count > sc[j].count
		}
		return sc[i].station < sc[j].station
	})
	fmt.Printf("Alerts by station (%d): ", len(sc))
	for _, s := range sc {
		fmt.Printf("%s=%d ", s.station, s.count)
	}
	fmt.Println()
}
