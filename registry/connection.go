package registry

import (
	"fmt"

	"go.aether.dev/aether/utils"
)

// A Connection is how a sensor attaches to the host. The set of connection kinds is closed.
type Connection interface {
	fmt.Stringer
	accepts(params ConnectionParams) error
}

// ConnectionParams locate a particular device for a Connection kind.
type ConnectionParams interface {
	isConnectionParams()
}

// I2C is a sensor on an I2C bus.
type I2C struct {
	DefaultAddress byte
}

func (c I2C) String() string {
	return fmt.Sprintf("i2c(0x%02X)", c.DefaultAddress)
}

func (c I2C) accepts(params ConnectionParams) error {
	_, err := utils.AssertType[I2CParams](params)
	return err
}

// I2CParams selects a bus and address for an I2C sensor.
type I2CParams struct {
	Bus     int
	Address byte
}

func (I2CParams) isConnectionParams() {}
