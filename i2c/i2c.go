// Package i2c offers I2C bus access for sensors, backed by periph.io on Linux hosts.
package i2c

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrAddressInUse is returned when a handle for the same bus and address is already open
// in this process.
var ErrAddressInUse = errors.New("i2c address already in use")

// Bus represents an I2C bus on the host.
type Bus interface {
	// OpenHandle returns a handle for the device at addr. It MUST be closed when done. A
	// second handle for an address that is still open fails with ErrAddressInUse.
	OpenHandle(addr byte) (Handle, error)
	// Close releases the bus. Handles opened from it must be closed first.
	Close() error
}

// Handle is similar to an io handle for a single device address. It MUST be closed to
// release the address.
type Handle interface {
	Write(ctx context.Context, tx []byte) error
	Read(ctx context.Context, count int) ([]byte, error)

	ReadByteData(ctx context.Context, register byte) (byte, error)
	WriteByteData(ctx context.Context, register, data byte) error

	ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error)
	WriteBlockData(ctx context.Context, register byte, data []byte) error

	// Close closes the handle and releases the address.
	Close() error
}

// Open opens the numbered I2C bus. It is a variable so tests can substitute a fake bus.
var Open = openPeriphBus

// OpenDevice opens bus and a handle for addr on it. Closing the returned handle also
// closes the bus, so the caller owns a single resource.
func OpenDevice(bus int, addr byte) (Handle, error) {
	b, err := Open(bus)
	if err != nil {
		return nil, errors.Wrapf(err, "opening i2c bus %d", bus)
	}
	h, err := b.OpenHandle(addr)
	if err != nil {
		return nil, multierr.Combine(
			errors.Wrapf(err, "opening i2c device 0x%02X on bus %d", addr, bus),
			b.Close())
	}
	return &owningHandle{Handle: h, bus: b}, nil
}

type owningHandle struct {
	Handle
	bus Bus
}

func (h *owningHandle) Close() error {
	return multierr.Combine(h.Handle.Close(), h.bus.Close())
}

// An I2CRegister is a lightweight wrapper around a handle for a particular register.
type I2CRegister struct {
	Handle   Handle
	Register byte
}

// ReadByteData reads a byte from the I2C channel register.
func (reg *I2CRegister) ReadByteData(ctx context.Context) (byte, error) {
	return reg.Handle.ReadByteData(ctx, reg.Register)
}

// WriteByteData writes a byte to the I2C channel register.
func (reg *I2CRegister) WriteByteData(ctx context.Context, data byte) error {
	return reg.Handle.WriteByteData(ctx, reg.Register, data)
}

// addressLocks tracks the bus/address pairs with an open handle in this process.
var addressLocks = struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}{inUse: map[string]struct{}{}}

func lockAddress(bus int, addr byte) error {
	key := fmt.Sprintf("%d/%d", bus, addr)
	addressLocks.mu.Lock()
	defer addressLocks.mu.Unlock()
	if _, ok := addressLocks.inUse[key]; ok {
		return errors.Wrapf(ErrAddressInUse, "bus %d address 0x%02X", bus, addr)
	}
	addressLocks.inUse[key] = struct{}{}
	return nil
}

func unlockAddress(bus int, addr byte) {
	addressLocks.mu.Lock()
	delete(addressLocks.inUse, fmt.Sprintf("%d/%d", bus, addr))
	addressLocks.mu.Unlock()
}
