// Package registry operates the global catalog of sensor descriptors. Drivers register
// themselves from init so the catalog is populated by importing them.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/sensor"
)

// ErrSimulationUnsupported is returned when simulating a sensor that has no simulated
// implementation.
var ErrSimulationUnsupported = errors.New("sensor cannot be simulated")

type (
	// An OpenFunc opens a device on real hardware using the given connection parameters.
	OpenFunc func(ctx context.Context, params ConnectionParams, logger logging.Logger) (sensor.Device, error)

	// A SimulateFunc creates a software-simulated device.
	SimulateFunc func(ctx context.Context, logger logging.Logger) (sensor.Device, error)
)

// A Descriptor describes a kind of sensor the system knows how to open.
type Descriptor struct {
	Name        string
	Measures    []measurement.Measure
	Connection  Connection
	CanSimulate bool

	Constructor OpenFunc
	Simulator   SimulateFunc
}

// Open opens the described device. It panics if params do not match the descriptor's
// connection kind. Transport failures are returned as *sensor.OpenError.
func (d Descriptor) Open(ctx context.Context, params ConnectionParams, logger logging.Logger) (sensor.Device, error) {
	if err := d.Connection.accepts(params); err != nil {
		panic(errors.Wrapf(err, "opening sensor %q", d.Name))
	}
	dev, err := d.Constructor(ctx, params, logger)
	if err != nil {
		return nil, asOpenError(d.Name, err)
	}
	return dev, nil
}

// Simulate creates a simulated device, or fails with ErrSimulationUnsupported.
func (d Descriptor) Simulate(ctx context.Context, logger logging.Logger) (sensor.Device, error) {
	if !d.CanSimulate {
		return nil, errors.Wrap(ErrSimulationUnsupported, d.Name)
	}
	dev, err := d.Simulator(ctx, logger)
	if err != nil {
		return nil, asOpenError(d.Name, err)
	}
	return dev, nil
}

// MeasureNames returns the display names of the measures, joined for listing.
func (d Descriptor) MeasureNames() string {
	return strings.Join(lo.Map(d.Measures, func(m measurement.Measure, _ int) string {
		return m.String()
	}), ", ")
}

func asOpenError(name string, err error) error {
	var openErr *sensor.OpenError
	if errors.As(err, &openErr) {
		return err
	}
	return &sensor.OpenError{Sensor: name, Err: err}
}

// NotFoundError is returned when no descriptor matches a lookup.
type NotFoundError struct {
	Name string
	// Capability describes the filter that was applied, like "I2C" or "simulatable". It is
	// empty for an unfiltered lookup.
	Capability string
}

func (e *NotFoundError) Error() string {
	if e.Capability == "" {
		return "a sensor by that name was not found"
	}
	article := "a"
	if strings.ContainsRune("AEIOUaeiou", rune(e.Capability[0])) {
		article = "an"
	}
	return fmt.Sprintf("%s %s sensor by that name was not found", article, e.Capability)
}

// A Catalog holds descriptors in registration order.
type Catalog struct {
	mu          sync.RWMutex
	descriptors []Descriptor
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Default is the process-wide catalog drivers register into.
var Default = NewCatalog()

// Register adds a descriptor to the default catalog.
func Register(d Descriptor) {
	Default.Register(d)
}

// Sensors returns the descriptors of the default catalog.
func Sensors() []Descriptor {
	return Default.Sensors()
}

// Lookup finds a descriptor in the default catalog.
func Lookup(name string) (Descriptor, error) {
	return Default.Lookup(name)
}

// Register adds a descriptor. It panics on an invalid or duplicate registration.
func (c *Catalog) Register(d Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d.Name == "" {
		panic(errors.New("cannot register a sensor with an empty name"))
	}
	if _, dup := lo.Find(c.descriptors, func(existing Descriptor) bool {
		return strings.EqualFold(existing.Name, d.Name)
	}); dup {
		panic(errors.Errorf("trying to register two sensors with same name %q", d.Name))
	}
	if d.Connection == nil {
		panic(errors.Errorf("cannot register sensor %q without a connection", d.Name))
	}
	if d.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for sensor %q", d.Name))
	}
	if d.CanSimulate != (d.Simulator != nil) {
		panic(errors.Errorf("sensor %q must set CanSimulate exactly when it has a simulator", d.Name))
	}
	d.Measures = append([]measurement.Measure(nil), d.Measures...)
	c.descriptors = append(c.descriptors, d)
}

// Sensors returns a copy of every descriptor in registration order.
func (c *Catalog) Sensors() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Descriptor(nil), c.descriptors...)
}

// Lookup returns the first descriptor whose name matches, ignoring case.
func (c *Catalog) Lookup(name string) (Descriptor, error) {
	return c.LookupFunc(name, "", nil)
}

// LookupFunc returns the first descriptor whose name matches, ignoring case, and for which
// filter returns true. capability names the filter in the returned *NotFoundError.
func (c *Catalog) LookupFunc(name, capability string, filter func(Descriptor) bool) (Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := lo.Find(c.descriptors, func(d Descriptor) bool {
		return strings.EqualFold(d.Name, name) && (filter == nil || filter(d))
	})
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name, Capability: capability}
	}
	return d, nil
}

// IsI2C filters descriptors connected over I2C.
func IsI2C(d Descriptor) bool {
	_, ok := d.Connection.(I2C)
	return ok
}

// IsSimulatable filters descriptors that can be simulated.
func IsSimulatable(d Descriptor) bool {
	return d.CanSimulate
}
