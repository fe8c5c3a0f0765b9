// Package scd4x implements the Sensirion SCD40/SCD41 CO2, humidity and temperature sensor.
package scd4x

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.aether.dev/aether/i2c"
	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/registry"
	"go.aether.dev/aether/sensor"
	"go.aether.dev/aether/sensors/simulated"
	"go.aether.dev/aether/utils"
)

// Name is the catalog name of the sensor.
const Name = "SCD4x"

// DefaultAddress is the fixed I2C address of the SCD4x.
const DefaultAddress = 0x62

const (
	cmdStartPeriodicMeasurement = 0x21B1
	cmdStopPeriodicMeasurement  = 0x3F86
	cmdGetDataReadyStatus       = 0xE4B8
	cmdReadMeasurement          = 0xEC05

	stopDelay       = 500 * time.Millisecond
	commandDelay    = time.Millisecond
	dataReadyPoll   = 100 * time.Millisecond
	dataReadyMask   = 0x07FF
	measurementSize = 3
)

// Measures lists what the SCD4x reports, in sample order.
var Measures = []measurement.Measure{measurement.CO2, measurement.Humidity, measurement.Temperature}

func init() {
	registry.Register(registry.Descriptor{
		Name:        Name,
		Measures:    Measures,
		Connection:  registry.I2C{DefaultAddress: DefaultAddress},
		CanSimulate: true,
		Constructor: Open,
		Simulator: func(ctx context.Context, logger logging.Logger) (sensor.Device, error) {
			return simulated.NewDevice(ctx, Name, logger, Measures...), nil
		},
	})
}

// Open opens an SCD4x on the given bus and address and starts periodic measurement.
func Open(ctx context.Context, params registry.ConnectionParams, logger logging.Logger) (sensor.Device, error) {
	p, err := utils.AssertType[registry.I2CParams](params)
	if err != nil {
		return nil, err
	}
	handle, err := i2c.OpenDevice(p.Bus, p.Address)
	if err != nil {
		return nil, err
	}
	conf := sensor.PollingConfigFromContext(ctx)
	s, err := newSampler(ctx, handle, conf.Clock, logger)
	if err != nil {
		return nil, multierr.Combine(err, handle.Close())
	}
	return sensor.NewPollingDevice(Name, s, conf, logger), nil
}

type sampler struct {
	handle i2c.Handle
	clock  clock.Clock
	logger logging.Logger
}

func newSampler(ctx context.Context, handle i2c.Handle, clk clock.Clock, logger logging.Logger) (*sampler, error) {
	s := &sampler{handle: handle, clock: clk, logger: logger}

	// A previous process may have left the sensor measuring, in which case it ignores
	// every command but stop.
	if err := i2c.WriteCommand(ctx, handle, cmdStopPeriodicMeasurement); err != nil {
		return nil, errors.Wrap(err, "stopping periodic measurement")
	}
	if err := s.sleep(ctx, stopDelay); err != nil {
		return nil, err
	}
	if err := i2c.WriteCommand(ctx, handle, cmdStartPeriodicMeasurement); err != nil {
		return nil, errors.Wrap(err, "starting periodic measurement")
	}
	return s, nil
}

func (s *sampler) Sample(ctx context.Context) ([]measurement.Measurement, error) {
	stopSlowLogger := utils.SlowLogger(ctx, s.clock, "waiting for measurement", "sensor", Name, s.logger)
	defer stopSlowLogger()
	for {
		ready, err := s.dataReady(ctx)
		if err != nil {
			return nil, err
		}
		if ready {
			break
		}
		if err := s.sleep(ctx, dataReadyPoll); err != nil {
			return nil, err
		}
	}

	words, err := s.read(ctx, cmdReadMeasurement, measurementSize)
	if err != nil {
		return nil, errors.Wrap(err, "reading measurement")
	}
	return Convert(words[0], words[1], words[2])
}

func (s *sampler) dataReady(ctx context.Context) (bool, error) {
	words, err := s.read(ctx, cmdGetDataReadyStatus, 1)
	if err != nil {
		return false, errors.Wrap(err, "reading data ready status")
	}
	return words[0]&dataReadyMask != 0, nil
}

func (s *sampler) read(ctx context.Context, cmd uint16, count int) ([]uint16, error) {
	if err := i2c.WriteCommand(ctx, s.handle, cmd); err != nil {
		return nil, err
	}
	if err := s.sleep(ctx, commandDelay); err != nil {
		return nil, err
	}
	return i2c.ReadWords(ctx, s.handle, count)
}

func (s *sampler) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

func (s *sampler) Close(ctx context.Context) error {
	return multierr.Combine(
		errors.Wrap(i2c.WriteCommand(ctx, s.handle, cmdStopPeriodicMeasurement), "stopping periodic measurement"),
		s.handle.Close(),
	)
}

// Convert turns the raw words of a measurement read into CO2, humidity and temperature.
func Convert(co2, temperature, humidity uint16) ([]measurement.Measurement, error) {
	c, err := measurement.PartsPerMillion(float64(co2))
	if err != nil {
		return nil, err
	}
	t, err := measurement.Celsius(-45 + 175*float64(temperature)/65535)
	if err != nil {
		return nil, err
	}
	h, err := measurement.Percent(min(100*float64(humidity)/65535, 100))
	if err != nil {
		return nil, err
	}
	return []measurement.Measurement{
		measurement.FromCO2(c),
		measurement.FromRelativeHumidity(h),
		measurement.FromTemperature(t),
	}, nil
}
