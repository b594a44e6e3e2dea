// Package feed generates plausible weather samples for demos and fixtures.
//
// All randomness comes from the *rand.Rand handed to NewGenerator, so a given
// seed always yields the same sequence.
package feed

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/hazard"
)

// DefaultStations are used when the generator is given none.
var DefaultStations = []string{"KOUN", "KFWD", "KICT", "KTOP", "KLZK"}

// scenario weights; the remainder is calm weather.
const (
	pWindy   = 0.15
	pWet     = 0.10
	pStorm   = 0.08
	pWinter  = 0.07
	pMissing = 0.10
)

// Generator produces weather samples. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	clock    clockwork.Clock
	stations []string
}

// NewGenerator creates a Generator drawing from rng.
func NewGenerator(rng *rand.Rand, clock clockwork.Clock, stations ...string) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if len(stations) == 0 {
		stations = DefaultStations
	}
	return &Generator{rng: rng, clock: clock, stations: stations}
}

// NewSeeded creates a Generator from a PCG source seeded with seed.
func NewSeeded(seed uint64, clock clockwork.Clock, stations ...string) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed+1)), clock, stations...)
}

// Next returns the next sample, observed now.
func (g *Generator) Next() hazard.Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := hazard.Sample{
		StationID:  g.stations[g.rng.IntN(len(g.stations))],
		ObservedAt: g.clock.Now().UTC(),
	}

	roll := g.rng.Float64()
	switch {
	case roll < pWindy:
		s.WindSpeed = g.value(15, 45)
		s.WindGusts = g.value(25, 70)
		s.Precipitation = g.value(0, 3)
		s.WeatherCode = g.code(1, 3)
	case roll < pWindy+pWet:
		s.WindSpeed = g.value(5, 20)
		s.Precipitation = g.value(8, 40)
		s.Rain = g.value(8, 40)
		s.WeatherCode = g.code(61, 67)
	case roll < pWindy+pWet+pStorm:
		s.WindSpeed = g.value(15, 40)
		s.WindGusts = g.value(30, 80)
		s.Precipitation = g.value(5, 50)
		s.WeatherCode = g.code(95, 99)
	case roll < pWindy+pWet+pStorm+pWinter:
		s.WindSpeed = g.value(5, 25)
		s.Precipitation = g.value(0, 10)
		s.WeatherCode = g.code(71, 77)
	default:
		s.WindSpeed = g.value(0, 15)
		s.WindGusts = g.value(0, 25)
		s.Precipitation = g.value(0, 5)
		s.Rain = g.value(0, 5)
		s.WeatherCode = g.code(0, 3)
	}
	return s
}

// Batch returns n consecutive samples.
func (g *Generator) Batch(n int) []hazard.Sample {
	out := make([]hazard.Sample, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Task adapts the generator to a periodic task that hands one sample to
// handle per tick.
func (g *Generator) Task(handle func(ctx context.Context, s hazard.Sample) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return handle(ctx, g.Next())
	}
}

// value draws a reading in [lo, hi) rounded to one decimal. Some readings are
// dropped to mimic stations that do not report every field.
func (g *Generator) value(lo, hi float64) *float64 {
	if g.rng.Float64() < pMissing {
		return nil
	}
	v := math.Round((lo+g.rng.Float64()*(hi-lo))*10) / 10
	return &v
}

func (g *Generator) code(lo, hi int) *int {
	c := lo + g.rng.IntN(hi-lo+1)
	return &c
}
