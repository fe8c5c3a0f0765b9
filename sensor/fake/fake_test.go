package fake

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/sensor"
)

func TestDevice(t *testing.T) {
	first := measurement.FromCO2(measurement.MustPartsPerMillion(4312.25))
	second := measurement.FromRelativeHumidity(measurement.MustPercent(59.1))

	dev := NewDevice("CO2Sim", first, second)
	var seen []int
	dev.BeforeEmit = func(i int, m measurement.Measurement) {
		seen = append(seen, i)
	}

	out := make(chan measurement.Measurement)
	errCh := make(chan error, 1)
	go func() {
		errCh <- dev.Stream(context.Background(), out)
	}()
	test.That(t, (<-out).Equal(first), test.ShouldBeTrue)
	test.That(t, (<-out).Equal(second), test.ShouldBeTrue)
	test.That(t, <-errCh, test.ShouldBeNil)
	test.That(t, seen, test.ShouldResemble, []int{0, 1})

	err := dev.Stream(context.Background(), out)
	test.That(t, errors.Is(err, sensor.ErrStreamStarted), test.ShouldBeTrue)

	test.That(t, dev.Close(context.Background()), test.ShouldBeNil)
	test.That(t, dev.Close(context.Background()), test.ShouldBeNil)
	test.That(t, dev.Closes(), test.ShouldEqual, 2)
}

func TestDeviceFailure(t *testing.T) {
	dev := NewDevice("broken")
	dev.Err = errors.New("bus fault")
	err := dev.Stream(context.Background(), nil)
	var streamErr *sensor.StreamError
	test.That(t, errors.As(err, &streamErr), test.ShouldBeTrue)
	test.That(t, streamErr.Err.Error(), test.ShouldEqual, "bus fault")
}

func TestDeviceHold(t *testing.T) {
	dev := NewDevice("held")
	dev.Hold = true
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- dev.Stream(ctx, nil)
	}()
	cancel()
	test.That(t, <-errCh, test.ShouldEqual, context.Canceled)
}
