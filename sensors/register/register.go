// Package register registers all sensor drivers in the catalog.
package register

import (
	// register sensors.
	_ "go.aether.dev/aether/sensors/bme280"
	_ "go.aether.dev/aether/sensors/scd4x"
	_ "go.aether.dev/aether/sensors/sht4x"
)
