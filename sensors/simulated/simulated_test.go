package simulated

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/sensor"
)

func TestGenerator(t *testing.T) {
	ctx := context.Background()
	walks := []Walk{DefaultWalk(measurement.CO2), DefaultWalk(measurement.Temperature)}
	gen := NewGenerator(42, walks...)

	first, err := gen.Sample(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first, test.ShouldHaveLength, 2)
	test.That(t, first[0].Equal(measurement.FromCO2(measurement.MustPartsPerMillion(800))), test.ShouldBeTrue)
	test.That(t, first[1].Measure(), test.ShouldEqual, measurement.Temperature)

	prev, _ := first[0].Value()
	for i := 0; i < 200; i++ {
		readings, err := gen.Sample(ctx)
		test.That(t, err, test.ShouldBeNil)
		v, unit := readings[0].Value()
		test.That(t, unit, test.ShouldEqual, "ppm")
		test.That(t, v, test.ShouldBeBetweenOrEqual, 400.0, 5000.0)
		test.That(t, v-prev, test.ShouldBeBetweenOrEqual, -25.01, 25.01)
		prev = v

		temp, _ := readings[1].Value()
		test.That(t, temp, test.ShouldBeBetweenOrEqual, -10.0, 45.0)
	}

	test.That(t, gen.Close(ctx), test.ShouldBeNil)
	_, err = gen.Sample(ctx)
	test.That(t, err, test.ShouldEqual, io.EOF)
}

func TestGeneratorIsReproducible(t *testing.T) {
	ctx := context.Background()
	a := NewGenerator(7, DefaultWalk(measurement.Humidity))
	b := NewGenerator(7, DefaultWalk(measurement.Humidity))
	for i := 0; i < 10; i++ {
		ra, err := a.Sample(ctx)
		test.That(t, err, test.ShouldBeNil)
		rb, err := b.Sample(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ra[0].Equal(rb[0]), test.ShouldBeTrue)
	}
}

func TestDefaultWalkPanicsOnUnknownMeasure(t *testing.T) {
	test.That(t, func() { DefaultWalk(measurement.Measure(0)) }, test.ShouldPanic)
}

func TestNewDevice(t *testing.T) {
	prevSeed := Seed
	defer func() {
		Seed = prevSeed
	}()
	Seed = func() uint64 { return 1 }

	logger := logging.NewTestLogger(t)
	ctx := sensor.WithPollingConfig(context.Background(), sensor.PollingConfig{
		Interval: time.Second,
		Clock:    clock.NewMock(),
	})
	dev := NewDevice(ctx, "BME280", logger,
		measurement.Humidity, measurement.BarometricPressure, measurement.Temperature)
	test.That(t, dev.Name(), test.ShouldEqual, "BME280")

	out := make(chan measurement.Measurement)
	streamCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- dev.Stream(streamCtx, out)
	}()

	test.That(t, (<-out).String(), test.ShouldEqual, "Humidity: 45 %")
	test.That(t, (<-out).String(), test.ShouldEqual, "Barometric Pressure: 1013.25 hPa")
	test.That(t, (<-out).String(), test.ShouldEqual, "Temperature: 21 °C")

	cancel()
	test.That(t, <-errCh, test.ShouldEqual, context.Canceled)
	test.That(t, dev.Close(context.Background()), test.ShouldBeNil)
}
