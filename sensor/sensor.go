// Package sensor defines an open sensing device that streams measurement readings.
package sensor

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"go.aether.dev/aether/measurement"
)

var (
	// ErrStreamStarted is returned by Stream when the device is already streaming.
	ErrStreamStarted = errors.New("sensor stream already started")
	// ErrClosed is returned when using a device after it has been closed.
	ErrClosed = errors.New("sensor is closed")
)

// A Device is a live sensor instance. It owns exactly one transport resource and releases
// it on Close. A Device is not reusable once closed.
type Device interface {
	// Name returns the name of the sensor kind this device was opened from.
	Name() string
	// Stream sends measurements to out until the device is exhausted, fails, or ctx is
	// done. It returns nil when the device completes normally. Stream may be called once.
	Stream(ctx context.Context, out chan<- measurement.Measurement) error
	// Close releases the transport resource. Calls after the first are no-ops.
	Close(ctx context.Context) error
}

// OpenError is returned when a device's transport cannot be acquired.
type OpenError struct {
	Sensor string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open sensor %s: %v", e.Sensor, e.Err)
}

// Unwrap returns the transport error.
func (e *OpenError) Unwrap() error {
	return e.Err
}

// StreamError is returned when reading from an open device fails.
type StreamError struct {
	Sensor string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("sensor %s stream failed: %v", e.Sensor, e.Err)
}

// Unwrap returns the read error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// Send delivers m on out unless ctx is done first.
func Send(ctx context.Context, out chan<- measurement.Measurement, m measurement.Measurement) error {
	select {
	case out <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
