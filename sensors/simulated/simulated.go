// Package simulated generates plausible sensor readings without hardware. Each measure
// follows a bounded random walk from a baseline.
package simulated

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/sensor"
)

// A Walk describes how one measure drifts. Values are in the measure's display unit.
type Walk struct {
	Measure  measurement.Measure
	Baseline float64
	Step     float64
	Min, Max float64
}

// DefaultWalk returns an indoor-air walk for m.
func DefaultWalk(m measurement.Measure) Walk {
	switch m {
	case measurement.CO2:
		return Walk{Measure: m, Baseline: 800, Step: 25, Min: 400, Max: 5000}
	case measurement.Humidity:
		return Walk{Measure: m, Baseline: 45, Step: 0.5, Min: 0, Max: 100}
	case measurement.BarometricPressure:
		return Walk{Measure: m, Baseline: 1013.25, Step: 0.2, Min: 870, Max: 1085}
	case measurement.Temperature:
		return Walk{Measure: m, Baseline: 21, Step: 0.1, Min: -10, Max: 45}
	default:
		panic(errors.Errorf("no walk for measure %v", m))
	}
}

// Generator is a sensor.Sampler producing one reading per walk per sample.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	walks   []Walk
	current []float64
	started bool
	closed  bool
}

// NewGenerator returns a generator seeded with seed so its output is reproducible.
func NewGenerator(seed uint64, walks ...Walk) *Generator {
	current := make([]float64, len(walks))
	for i, w := range walks {
		current[i] = w.Baseline
	}
	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		walks:   walks,
		current: current,
	}
}

// Sample returns the next reading of every walk, in walk order. The first sample is the
// baselines. A closed generator returns io.EOF.
func (g *Generator) Sample(ctx context.Context) ([]measurement.Measurement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, io.EOF
	}
	if g.started {
		for i, w := range g.walks {
			next := g.current[i] + (g.rng.Float64()*2-1)*w.Step
			g.current[i] = min(max(next, w.Min), w.Max)
		}
	}
	g.started = true

	readings := make([]measurement.Measurement, 0, len(g.walks))
	for i, w := range g.walks {
		m, err := toMeasurement(w.Measure, g.current[i])
		if err != nil {
			return nil, err
		}
		readings = append(readings, m)
	}
	return readings, nil
}

// Close stops the generator.
func (g *Generator) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func toMeasurement(m measurement.Measure, v float64) (measurement.Measurement, error) {
	switch m {
	case measurement.CO2:
		c, err := measurement.PartsPerMillion(v)
		return measurement.FromCO2(c), err
	case measurement.Humidity:
		h, err := measurement.Percent(v)
		return measurement.FromRelativeHumidity(h), err
	case measurement.BarometricPressure:
		p, err := measurement.Hectopascals(v)
		return measurement.FromPressure(p), err
	case measurement.Temperature:
		t, err := measurement.Celsius(v)
		return measurement.FromTemperature(t), err
	default:
		return measurement.Measurement{}, errors.Errorf("cannot simulate measure %v", m)
	}
}

// Seed returns the seed for a new simulated device. Tests replace it for reproducible
// output.
var Seed = rand.Uint64

// NewDevice returns a polling device simulating the given measures with default walks.
// Polling settings come from ctx.
func NewDevice(ctx context.Context, name string, logger logging.Logger, measures ...measurement.Measure) sensor.Device {
	walks := make([]Walk, 0, len(measures))
	for _, m := range measures {
		walks = append(walks, DefaultWalk(m))
	}
	seed := Seed()
	logger.Debugw("simulating sensor", "sensor", name, "seed", seed)
	return sensor.NewPollingDevice(name, NewGenerator(seed, walks...), sensor.PollingConfigFromContext(ctx), logger)
}
