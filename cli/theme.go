package cli

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.aether.dev/aether/display/simulated"
	"go.aether.dev/aether/fanout"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/theme"
)

// The simulated panel matches a 2.9" 296x128 e-paper display.
const (
	panelWidth  = 296
	panelHeight = 128
	panelDPI    = 112.399461802960
)

var themeMeasures = []measurement.Measure{
	measurement.CO2,
	measurement.Humidity,
	measurement.BarometricPressure,
	measurement.Temperature,
}

func themeReadings() []measurement.Measurement {
	return []measurement.Measurement{
		measurement.FromCO2(measurement.MustPartsPerMillion(4312.25)),
		measurement.FromRelativeHumidity(measurement.MustPercent(59.1)),
		measurement.FromPressure(measurement.MustAtmospheres(1.04)),
		measurement.FromTemperature(measurement.MustFahrenheit(65.2)),
	}
}

// ThemeTestAction pushes fixed readings through the multi-line theme and writes every
// frame to the output directory.
func ThemeTestAction(c *cli.Context) (err error) {
	session, err := newSession(c)
	if err != nil {
		return err
	}
	session.ThemeOutDir = c.String(flagOut)
	if err := session.Validate("session"); err != nil {
		return err
	}
	logger := session.Logger("aether")
	defer func() {
		//nolint:errcheck
		session.Close()
	}()

	driver, err := simulated.New(simulated.Config{
		OutDir: session.ThemeOutDir,
		Width:  panelWidth,
		Height: panelHeight,
		DPI:    panelDPI,
	}, logger.Sublogger("display"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := driver.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	subject := fanout.NewSubject(logger)
	defer func() {
		//nolint:errcheck
		subject.Close()
	}()

	multiLine, err := theme.NewMultiLine(c.Context, driver, themeMeasures, subject, logger.Sublogger("theme"))
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		multiLine.Close()
	}()

	for _, m := range themeReadings() {
		if err := subject.OnNext(m); err != nil {
			return errors.Wrapf(err, "publishing %s", m.Measure())
		}
	}
	if err := subject.OnCompleted(); err != nil {
		return err
	}
	if err := multiLine.Wait(c.Context); err != nil {
		return err
	}

	for _, line := range multiLine.Lines() {
		printf(c.App.Writer, "%s", line)
	}
	printf(c.App.Writer, "wrote %d frames to %s", driver.Frames(), session.ThemeOutDir)
	return nil
}
