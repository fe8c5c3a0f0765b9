package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.aether.dev/aether/config"
	"go.aether.dev/aether/console"
	"go.aether.dev/aether/fanout"
	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/metrics"
	"go.aether.dev/aether/registry"
	"go.aether.dev/aether/sensor"
	// register the built-in drivers.
	_ "go.aether.dev/aether/sensors/register"
	"go.aether.dev/aether/stream"
)

const simulatableMarker = " / simulatable"

// catalog is the set of sensors the commands resolve names against.
var catalog = registry.Default

// newSession builds the session from the global flags.
func newSession(c *cli.Context) (*config.Session, error) {
	s := config.NewSession()
	s.Debug = c.Bool(flagDebug)
	s.SampleInterval = c.Duration(flagInterval)
	s.MetricsTextfile = c.String(flagMetricsTextfile)
	s.LogFile = c.String(flagLogFile)
	if err := s.Validate("session"); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSensorsAction prints one line per known sensor.
func ListSensorsAction(c *cli.Context) error {
	marker := color.New(color.FgGreen).SprintFunc()
	for _, d := range catalog.Sensors() {
		simulatable := strings.Repeat(" ", len(simulatableMarker))
		if d.CanSimulate {
			simulatable = marker(simulatableMarker)
		}
		printf(c.App.Writer, "%s%s - %s - %s", d.Connection, simulatable, d.Name, d.MeasureNames())
	}
	return nil
}

// TestI2CSensorAction streams readings from an I2C sensor until interrupted.
func TestI2CSensorAction(c *cli.Context) error {
	if c.Args().Len() != 3 {
		return errors.Errorf("expected arguments <name> <bus> <address>, got %d argument(s)", c.Args().Len())
	}
	name := c.Args().Get(0)
	d, err := catalog.LookupFunc(name, "I2C", registry.IsI2C)
	if err != nil {
		return err
	}
	bus, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return errors.Wrapf(err, "invalid bus %q", c.Args().Get(1))
	}
	addr, err := strconv.ParseUint(c.Args().Get(2), 0, 8)
	if err != nil {
		return errors.Wrapf(err, "invalid address %q", c.Args().Get(2))
	}

	session, err := newSession(c)
	if err != nil {
		return err
	}
	params := registry.I2CParams{Bus: bus, Address: byte(addr)}
	return runSensor(c, session, d.Name, func(ctx context.Context, logger logging.Logger) (sensor.Device, error) {
		return d.Open(ctx, params, logger)
	})
}

// SimulateSensorAction streams readings from a simulated sensor until interrupted.
func SimulateSensorAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.Errorf("expected argument <name>, got %d argument(s)", c.Args().Len())
	}
	d, err := catalog.LookupFunc(c.Args().First(), "simulatable", registry.IsSimulatable)
	if err != nil {
		return err
	}

	session, err := newSession(c)
	if err != nil {
		return err
	}
	return runSensor(c, session, d.Name, d.Simulate)
}

// runSensor opens a device and prints its readings until the stream ends or the process
// is interrupted. An interrupt is a clean exit unless releasing the device fails.
func runSensor(
	c *cli.Context,
	session *config.Session,
	name string,
	open func(ctx context.Context, logger logging.Logger) (sensor.Device, error),
) (err error) {
	logger := session.Logger("aether")
	defer func() {
		//nolint:errcheck
		logger.Sync()
		//nolint:errcheck
		session.Close()
	}()
	ctx := sensor.WithPollingConfig(c.Context, session.PollingConfig())

	interrupt, stopInterrupt := stream.NotifyInterrupt(ctx)
	defer stopInterrupt()

	printer := console.NewPrinter(c.App.Writer, nil)
	emit := printer.Print

	if session.MetricsTextfile != "" {
		subject := fanout.NewSubject(logger)
		defer func() {
			//nolint:errcheck
			subject.Close()
		}()
		sink := metrics.NewSink(name, session.MetricsTextfile, logger.Sublogger("metrics"))
		defer func() {
			//nolint:errcheck
			sink.Close()
		}()
		if err := sink.Attach(ctx, subject); err != nil {
			return err
		}
		emit = func(m measurement.Measurement) error {
			if err := printer.Print(m); err != nil {
				return err
			}
			return subject.OnNext(m)
		}
		defer func() {
			if err != nil {
				//nolint:errcheck
				subject.OnError(err)
			} else {
				//nolint:errcheck
				subject.OnCompleted()
			}
			sink.Wait()
		}()
	}

	s, err := stream.Using(ctx, func(ctx context.Context) (stream.Source[measurement.Measurement], error) {
		dev, err := open(ctx, logger)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}, logger)
	if err != nil {
		return err
	}
	logger.Debugw("streaming sensor", "sensor", name, "interval", session.SampleInterval)

	outcome, err := stream.Drain(ctx, stream.Until(s, interrupt.Done()), emit)
	logger.Debugw("sensor stream ended", "sensor", name, "outcome", outcome)
	return err
}
