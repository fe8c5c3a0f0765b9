// Package cli contains all business logic needed by the CLI command.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.aether.dev/aether/sensor"
)

const (
	// Global flags.
	flagDebug           = "debug"
	flagInterval        = "interval"
	flagMetricsTextfile = "metrics-textfile"
	flagLogFile         = "log-file"

	// theme-test flags.
	flagOut = "out"
)

var app = &cli.App{
	Name:            "aether",
	Usage:           "stream readings from environmental sensors",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.DurationFlag{
			Name:  flagInterval,
			Value: sensor.DefaultInterval,
			Usage: "time between samples of polling sensors",
		},
		&cli.StringFlag{
			Name:  flagMetricsTextfile,
			Usage: "also export readings as prometheus gauges to `FILE` (must end in .prom)",
		},
		&cli.StringFlag{
			Name:  flagLogFile,
			Usage: "also write logs as JSON to `FILE`, rotated by size",
		},
	},
	Commands: []*cli.Command{
		{
			Name:            "sensor",
			Usage:           "work with sensors",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "list every known sensor",
					Action: ListSensorsAction,
				},
				{
					Name:            "test",
					Usage:           "read from a sensor attached to real hardware",
					HideHelpCommand: true,
					Subcommands: []*cli.Command{
						{
							Name:      "i2c",
							Usage:     "read from an I2C sensor until interrupted",
							ArgsUsage: "<name> <bus> <address>",
							Action:    TestI2CSensorAction,
						},
					},
				},
				{
					Name:      "simulate",
					Usage:     "read from a simulated sensor until interrupted",
					ArgsUsage: "<name>",
					Action:    SimulateSensorAction,
				},
			},
		},
		{
			Name:  "theme-test",
			Usage: "render fixed readings through the multi-line theme onto a simulated display",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagOut,
					Usage: "write frames to `DIR`",
					Value: "out",
				},
			},
			Action: ThemeTestAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
