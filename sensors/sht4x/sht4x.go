// Package sht4x implements the Sensirion SHT40 humidity and temperature sensor.
package sht4x

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.aether.dev/aether/i2c"
	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/registry"
	"go.aether.dev/aether/sensor"
	"go.aether.dev/aether/utils"
)

// Name is the catalog name of the sensor.
const Name = "SHT4x"

// DefaultAddress is the I2C address of the SHT40-AD1B.
const DefaultAddress = 0x44

const (
	cmdMeasureHighPrecision = 0xFD
	measureDelay            = 10 * time.Millisecond
)

// Measures lists what the SHT4x reports, in sample order.
var Measures = []measurement.Measure{measurement.Humidity, measurement.Temperature}

func init() {
	registry.Register(registry.Descriptor{
		Name:        Name,
		Measures:    Measures,
		Connection:  registry.I2C{DefaultAddress: DefaultAddress},
		Constructor: Open,
	})
}

// Open opens an SHT4x on the given bus and address.
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
	return sensor.NewPollingDevice(Name, &sampler{handle: handle, clock: conf.Clock}, conf, logger), nil
}

type sampler struct {
	handle i2c.Handle
	clock  clock.Clock
}

func (s *sampler) Sample(ctx context.Context) ([]measurement.Measurement, error) {
	if err := s.handle.Write(ctx, []byte{cmdMeasureHighPrecision}); err != nil {
		return nil, errors.Wrap(err, "starting measurement")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.clock.After(measureDelay):
	}
	words, err := i2c.ReadWords(ctx, s.handle, 2)
	if err != nil {
		return nil, errors.Wrap(err, "reading measurement")
	}
	return Convert(words[0], words[1])
}

func (s *sampler) Close(ctx context.Context) error {
	return s.handle.Close()
}

// Convert turns raw temperature and humidity words into humidity and temperature
// measurements. Humidity is clipped to 0..100 as the datasheet recommends.
func Convert(temperature, humidity uint16) ([]measurement.Measurement, error) {
	rh, err := measurement.Percent(min(max(-6+125*float64(humidity)/65535, 0), 100))
	if err != nil {
		return nil, err
	}
	t, err := measurement.Celsius(-45 + 175*float64(temperature)/65535)
	if err != nil {
		return nil, err
	}
	return []measurement.Measurement{
		measurement.FromRelativeHumidity(rh),
		measurement.FromTemperature(t),
	}, nil
}
