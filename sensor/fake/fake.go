// Package fake implements a scripted sensor device for tests and demos.
package fake

import (
	"context"
	"sync"

	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/sensor"
)

// Device emits a scripted list of measurements and then ends the way it was told to.
type Device struct {
	name   string
	script []measurement.Measurement

	// Err, if set, fails the stream after the script is emitted.
	Err error
	// Hold, if set, keeps the stream open after the script until ctx is done.
	Hold bool
	// BeforeEmit, if set, runs before each scripted value is sent.
	BeforeEmit func(index int, m measurement.Measurement)
	// CloseErr is returned from the first Close.
	CloseErr error

	mu       sync.Mutex
	streamed bool
	closes   int
}

var _ sensor.Device = (*Device)(nil)

// NewDevice returns a fake device that emits script in order and then completes.
func NewDevice(name string, script ...measurement.Measurement) *Device {
	return &Device{name: name, script: script}
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Stream emits the script.
func (d *Device) Stream(ctx context.Context, out chan<- measurement.Measurement) error {
	d.mu.Lock()
	switch {
	case d.closes > 0:
		d.mu.Unlock()
		return sensor.ErrClosed
	case d.streamed:
		d.mu.Unlock()
		return sensor.ErrStreamStarted
	}
	d.streamed = true
	d.mu.Unlock()

	for i, m := range d.script {
		if d.BeforeEmit != nil {
			d.BeforeEmit(i, m)
		}
		if err := sensor.Send(ctx, out, m); err != nil {
			return err
		}
	}
	if d.Err != nil {
		return &sensor.StreamError{Sensor: d.name, Err: d.Err}
	}
	if d.Hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Close counts the call.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	if d.closes == 1 {
		return d.CloseErr
	}
	return nil
}

// Closes returns how many times Close was called.
func (d *Device) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}
