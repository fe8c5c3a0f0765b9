package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/registry"
	"go.aether.dev/aether/sensor"
	"go.aether.dev/aether/sensor/fake"
	"go.aether.dev/aether/testutils/inject"
)

var co2Reading = measurement.FromCO2(measurement.MustPartsPerMillion(4312.25))

var readingLine = regexp.MustCompile(`^\[\d\d:\d\d\] CO2: 4312\.25 ppm$`)

type testCatalog struct {
	catalog *registry.Catalog
	devices []*fake.Device
	params  []registry.I2CParams
}

func (tc *testCatalog) device(name string) *fake.Device {
	dev := fake.NewDevice(name, co2Reading)
	tc.devices = append(tc.devices, dev)
	return dev
}

// setup swaps in a catalog holding a simulatable "CO2Sim" and an I2C-only "SHT4x" and
// returns an app writing to the returned buffers.
func setup(t *testing.T) (*testCatalog, func(args ...string) (string, string, error)) {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	prev := catalog
	t.Cleanup(func() {
		catalog = prev
		color.NoColor = noColor
	})

	tc := &testCatalog{catalog: registry.NewCatalog()}
	tc.catalog.Register(registry.Descriptor{
		Name:        "CO2Sim",
		Measures:    []measurement.Measure{measurement.CO2},
		Connection:  registry.I2C{DefaultAddress: 0x62},
		CanSimulate: true,
		Constructor: func(ctx context.Context, params registry.ConnectionParams, logger logging.Logger) (sensor.Device, error) {
			tc.params = append(tc.params, params.(registry.I2CParams))
			return tc.device("CO2Sim"), nil
		},
		Simulator: func(ctx context.Context, logger logging.Logger) (sensor.Device, error) {
			return tc.device("CO2Sim"), nil
		},
	})
	tc.catalog.Register(registry.Descriptor{
		Name:       "SHT4x",
		Measures:   []measurement.Measure{measurement.Humidity, measurement.Temperature},
		Connection: registry.I2C{DefaultAddress: 0x44},
		Constructor: func(ctx context.Context, params registry.ConnectionParams, logger logging.Logger) (sensor.Device, error) {
			return nil, errors.New("no such device")
		},
	})
	catalog = tc.catalog

	return tc, func(args ...string) (string, string, error) {
		var out, errOut bytes.Buffer
		err := NewApp(&out, &errOut).Run(append([]string{"aether"}, args...))
		return out.String(), errOut.String(), err
	}
}

func outputLines(out string) []string {
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n")
}

func TestListSensors(t *testing.T) {
	_, run := setup(t)
	out, _, err := run("sensor", "list")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outputLines(out), test.ShouldResemble, []string{
		"i2c(0x62) / simulatable - CO2Sim - CO2",
		"i2c(0x44)               - SHT4x - Humidity, Temperature",
	})
}

func TestSimulateSensor(t *testing.T) {
	t.Run("prints one line and completes", func(t *testing.T) {
		tc, run := setup(t)
		out, _, err := run("sensor", "simulate", "CO2Sim")
		test.That(t, err, test.ShouldBeNil)
		lines := outputLines(out)
		test.That(t, lines, test.ShouldHaveLength, 1)
		test.That(t, readingLine.MatchString(lines[0]), test.ShouldBeTrue)
		test.That(t, tc.devices, test.ShouldHaveLength, 1)
		test.That(t, tc.devices[0].Closes(), test.ShouldEqual, 1)
	})

	t.Run("name lookup ignores case", func(t *testing.T) {
		_, run := setup(t)
		out, _, err := run("sensor", "simulate", "co2sim")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, outputLines(out), test.ShouldHaveLength, 1)
	})

	t.Run("not simulatable", func(t *testing.T) {
		tc, run := setup(t)
		out, _, err := run("sensor", "simulate", "SHT4x")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldEqual, "a simulatable sensor by that name was not found")
		var notFound *registry.NotFoundError
		test.That(t, errors.As(err, &notFound), test.ShouldBeTrue)
		test.That(t, notFound.Name, test.ShouldEqual, "SHT4x")
		test.That(t, out, test.ShouldBeEmpty)
		test.That(t, tc.devices, test.ShouldBeEmpty)
	})

	t.Run("missing name", func(t *testing.T) {
		_, run := setup(t)
		_, _, err := run("sensor", "simulate")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "expected argument <name>")
	})

	t.Run("invalid interval", func(t *testing.T) {
		tc, run := setup(t)
		_, _, err := run("--interval", "0s", "sensor", "simulate", "CO2Sim")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "sample interval must be positive")
		test.That(t, tc.devices, test.ShouldBeEmpty)
	})
}

func TestSimulateSensorFailure(t *testing.T) {
	setup(t)
	var closes int
	failing := registry.NewCatalog()
	failing.Register(registry.Descriptor{
		Name:        "Flaky",
		Measures:    []measurement.Measure{measurement.CO2},
		Connection:  registry.I2C{DefaultAddress: 0x62},
		CanSimulate: true,
		Constructor: func(ctx context.Context, params registry.ConnectionParams, logger logging.Logger) (sensor.Device, error) {
			return nil, errors.New("not wired")
		},
		Simulator: func(ctx context.Context, logger logging.Logger) (sensor.Device, error) {
			dev := inject.NewSensor("Flaky")
			dev.StreamFunc = func(ctx context.Context, out chan<- measurement.Measurement) error {
				if err := sensor.Send(ctx, out, co2Reading); err != nil {
					return err
				}
				return &sensor.StreamError{Sensor: "Flaky", Err: errors.New("crc mismatch")}
			}
			dev.CloseFunc = func(ctx context.Context) error {
				closes++
				return nil
			}
			return dev, nil
		},
	})
	catalog = failing

	var out bytes.Buffer
	err := NewApp(&out, &bytes.Buffer{}).Run([]string{"aether", "sensor", "simulate", "Flaky"})
	test.That(t, err, test.ShouldNotBeNil)
	var streamErr *sensor.StreamError
	test.That(t, errors.As(err, &streamErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "sensor Flaky stream failed: crc mismatch")
	test.That(t, outputLines(out.String()), test.ShouldHaveLength, 1)
	test.That(t, closes, test.ShouldEqual, 1)
}

func TestSimulateSensorMetrics(t *testing.T) {
	_, run := setup(t)
	textfile := filepath.Join(t.TempDir(), "aether.prom")
	out, _, err := run("--metrics-textfile", textfile, "sensor", "simulate", "CO2Sim")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outputLines(out), test.ShouldHaveLength, 1)

	exported, err := os.ReadFile(textfile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(exported), test.ShouldContainSubstring, `aether_co2_ppm{sensor="CO2Sim"} 4312.25`)

	_, _, err = run("--metrics-textfile", filepath.Join(t.TempDir(), "aether.txt"), "sensor", "simulate", "CO2Sim")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ".prom")
}

func TestSimulateSensorLogFile(t *testing.T) {
	_, run := setup(t)
	logFile := filepath.Join(t.TempDir(), "aether.log")
	_, _, err := run("--debug", "--log-file", logFile, "sensor", "simulate", "CO2Sim")
	test.That(t, err, test.ShouldBeNil)

	logged, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logged), test.ShouldContainSubstring, `"msg":"sensor stream ended"`)
	test.That(t, string(logged), test.ShouldContainSubstring, `"outcome":"completed"`)
}

func TestTestI2CSensor(t *testing.T) {
	t.Run("hex address", func(t *testing.T) {
		tc, run := setup(t)
		out, _, err := run("sensor", "test", "i2c", "CO2Sim", "1", "0x62")
		test.That(t, err, test.ShouldBeNil)
		lines := outputLines(out)
		test.That(t, lines, test.ShouldHaveLength, 1)
		test.That(t, readingLine.MatchString(lines[0]), test.ShouldBeTrue)
		test.That(t, tc.params, test.ShouldResemble, []registry.I2CParams{{Bus: 1, Address: 0x62}})
		test.That(t, tc.devices[0].Closes(), test.ShouldEqual, 1)
	})

	t.Run("decimal address", func(t *testing.T) {
		tc, run := setup(t)
		_, _, err := run("sensor", "test", "i2c", "CO2Sim", "3", "98")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tc.params, test.ShouldResemble, []registry.I2CParams{{Bus: 3, Address: 0x62}})
	})

	t.Run("unknown sensor", func(t *testing.T) {
		tc, run := setup(t)
		_, _, err := run("sensor", "test", "i2c", "BME680", "1", "0x77")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldEqual, "an I2C sensor by that name was not found")
		test.That(t, tc.params, test.ShouldBeEmpty)
	})

	t.Run("open failure", func(t *testing.T) {
		_, run := setup(t)
		out, _, err := run("sensor", "test", "i2c", "SHT4x", "1", "0x44")
		test.That(t, err, test.ShouldNotBeNil)
		var openErr *sensor.OpenError
		test.That(t, errors.As(err, &openErr), test.ShouldBeTrue)
		test.That(t, openErr.Sensor, test.ShouldEqual, "SHT4x")
		test.That(t, err.Error(), test.ShouldContainSubstring, "no such device")
		test.That(t, out, test.ShouldBeEmpty)
	})

	t.Run("bad arguments", func(t *testing.T) {
		tc, run := setup(t)
		_, _, err := run("sensor", "test", "i2c", "CO2Sim", "one", "0x62")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `invalid bus "one"`)

		_, _, err = run("sensor", "test", "i2c", "CO2Sim", "1", "0x162")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `invalid address "0x162"`)

		_, _, err = run("sensor", "test", "i2c", "CO2Sim", "1")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "got 2 argument(s)")
		test.That(t, tc.params, test.ShouldBeEmpty)
	})
}

func TestThemeTest(t *testing.T) {
	_, run := setup(t)
	outDir := filepath.Join(t.TempDir(), "frames")
	out, _, err := run("theme-test", "--out", outDir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outputLines(out), test.ShouldResemble, []string{
		"CO2: 4312.25 ppm",
		"Humidity: 59.1 %",
		"Barometric Pressure: 1053.78 hPa",
		"Temperature: 18.44 °C",
		"wrote 6 frames to " + outDir,
	})

	frames, err := filepath.Glob(filepath.Join(outDir, "frame-*.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frames, test.ShouldHaveLength, 6)
}

func TestPrintError(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	test.That(t, buf.String(), test.ShouldEqual, "Error: boom\n")
}
