package inject

import (
	"context"

	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/sensor"
)

// Sensor is an injected sensor device.
type Sensor struct {
	sensor.Device
	name       string
	StreamFunc func(ctx context.Context, out chan<- measurement.Measurement) error
	CloseFunc  func(ctx context.Context) error
}

// NewSensor returns a new injected sensor device.
func NewSensor(name string) *Sensor {
	return &Sensor{name: name}
}

// Name returns the name of the device.
func (s *Sensor) Name() string {
	return s.name
}

// Stream calls the injected Stream or the real version.
func (s *Sensor) Stream(ctx context.Context, out chan<- measurement.Measurement) error {
	if s.StreamFunc == nil {
		return s.Device.Stream(ctx, out)
	}
	return s.StreamFunc(ctx, out)
}

// Close calls the injected Close or the real version.
func (s *Sensor) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		return s.Device.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
