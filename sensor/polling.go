package sensor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
)

// DefaultInterval is the sampling interval used when none is configured.
const DefaultInterval = 5 * time.Second

// A Sampler reads one set of measurements from a transport.
type Sampler interface {
	// Sample returns the measurements of one reading. It returns io.EOF when the source
	// has no more readings.
	Sample(ctx context.Context) ([]measurement.Measurement, error)
	// Close releases the transport.
	Close(ctx context.Context) error
}

// PollingConfig controls how a polling device samples.
type PollingConfig struct {
	Interval time.Duration
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

func (conf PollingConfig) withDefaults() PollingConfig {
	if conf.Interval <= 0 {
		conf.Interval = DefaultInterval
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	return conf
}

type pollingConfigKey struct{}

// WithPollingConfig returns a context carrying conf for drivers opened with it.
func WithPollingConfig(ctx context.Context, conf PollingConfig) context.Context {
	return context.WithValue(ctx, pollingConfigKey{}, conf)
}

// PollingConfigFromContext returns the polling config attached to ctx, with defaults
// filled in.
func PollingConfigFromContext(ctx context.Context) PollingConfig {
	conf, _ := ctx.Value(pollingConfigKey{}).(PollingConfig)
	return conf.withDefaults()
}

// NewPollingDevice returns a Device that samples immediately and then once per interval.
func NewPollingDevice(name string, sampler Sampler, conf PollingConfig, logger logging.Logger) Device {
	conf = conf.withDefaults()
	return &pollingDevice{
		name:     name,
		sampler:  sampler,
		interval: conf.Interval,
		clock:    conf.Clock,
		logger:   logger,
	}
}

type pollingDevice struct {
	name     string
	sampler  Sampler
	interval time.Duration
	clock    clock.Clock
	logger   logging.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

func (d *pollingDevice) Name() string {
	return d.name
}

func (d *pollingDevice) Stream(ctx context.Context, out chan<- measurement.Measurement) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.started {
		d.mu.Unlock()
		return ErrStreamStarted
	}
	d.started = true
	d.mu.Unlock()

	ticker := d.clock.Ticker(d.interval)
	defer ticker.Stop()
	for {
		readings, err := d.sampler.Sample(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			d.logger.Debugw("sensor exhausted", "sensor", d.name)
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return &StreamError{Sensor: d.name, Err: err}
		}
		for _, m := range readings {
			if err := Send(ctx, out, m); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *pollingDevice) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.logger.Debugw("closing sensor", "sensor", d.name)
	return d.sampler.Close(ctx)
}
