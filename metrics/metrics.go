// Package metrics exports the latest measurements as Prometheus gauges. Gauges are
// written to a file for the node exporter textfile collector; nothing listens on the
// network.
package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"go.aether.dev/aether/fanout"
	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/utils"
)

// Sink holds one gauge per measure, labelled by sensor.
type Sink struct {
	registry *prometheus.Registry
	gauges   map[measurement.Measure]*prometheus.GaugeVec
	sensor   string
	textfile string
	logger   logging.Logger

	mu      sync.Mutex
	workers utils.StoppableWorkers
}

func newGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"sensor"},
	)
}

// NewSink returns a sink for readings of the named sensor. When textfile is not empty,
// every observation rewrites it.
func NewSink(sensor, textfile string, logger logging.Logger) *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		gauges: map[measurement.Measure]*prometheus.GaugeVec{
			measurement.CO2:                newGauge("aether_co2_ppm", "CO2 concentration (units: ppm)"),
			measurement.Humidity:           newGauge("aether_relative_humidity_percent", "Relative humidity (units: %)"),
			measurement.BarometricPressure: newGauge("aether_pressure_hpa", "Barometric pressure (units: hPa)"),
			measurement.Temperature:        newGauge("aether_temperature_celsius", "Air temperature (units: degrees Celsius)"),
		},
		sensor:   sensor,
		textfile: textfile,
		logger:   logger,
	}
	for _, m := range measurement.Measures() {
		s.registry.MustRegister(s.gauges[m])
	}
	return s
}

// Gatherer returns the sink's registry.
func (s *Sink) Gatherer() prometheus.Gatherer {
	return s.registry
}

// Observe sets the gauge for m's measure and rewrites the textfile if one is configured.
func (s *Sink) Observe(m measurement.Measurement) error {
	gauge, ok := s.gauges[m.Measure()]
	if !ok {
		return nil
	}
	v, _ := m.Value()
	gauge.WithLabelValues(s.sensor).Set(v)
	if s.textfile == "" {
		return nil
	}
	return s.WriteTextfile(s.textfile)
}

// WriteTextfile writes every gauge to path in the text exposition format.
func (s *Sink) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}

// Attach observes every measurement published on subject until it terminates or the
// sink is closed.
func (s *Sink) Attach(ctx context.Context, subject *fanout.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers == nil {
		s.workers = utils.NewStoppableWorkers(ctx)
	}
	notifications, err := subject.Subscribe(s.workers.Context())
	if err != nil {
		return err
	}
	s.workers.AddWorkers(func(ctx context.Context) {
		for n := range notifications {
			if n.Kind != fanout.Next {
				continue
			}
			if err := s.Observe(n.Measurement); err != nil {
				s.logger.Warnw("failed to export metrics", "error", err)
			}
		}
	})
	return nil
}

// Wait blocks until every attached subject has terminated.
func (s *Sink) Wait() {
	s.mu.Lock()
	workers := s.workers
	s.mu.Unlock()
	if workers != nil {
		workers.Wait()
	}
}

// Close detaches from every subject.
func (s *Sink) Close() error {
	s.mu.Lock()
	workers := s.workers
	s.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return nil
}
