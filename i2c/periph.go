package i2c

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

func openPeriphBus(number int) (Bus, error) {
	if err := hostInit(); err != nil {
		return nil, errors.Wrap(err, "initializing host drivers")
	}
	bus, err := i2creg.Open(strconv.Itoa(number))
	if err != nil {
		return nil, err
	}
	return &periphBus{number: number, bus: bus}, nil
}

type periphBus struct {
	number int
	bus    i2c.BusCloser
}

// This lets the periphBus type implement the Bus interface.
func (b *periphBus) OpenHandle(addr byte) (Handle, error) {
	if err := lockAddress(b.number, addr); err != nil {
		return nil, err
	}
	return &periphHandle{bus: b.number, dev: &i2c.Dev{Bus: b.bus, Addr: uint16(addr)}}, nil
}

func (b *periphBus) Close() error {
	return b.bus.Close()
}

// periphHandle wraps an i2c.Dev. periph transactions block without a context, so the
// context is only checked before each transaction starts.
type periphHandle struct {
	bus      int
	dev      *i2c.Dev
	closeOne sync.Once
}

func (h *periphHandle) tx(ctx context.Context, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.dev.Tx(w, r); err != nil {
		return errors.Wrapf(err, "i2c transaction with 0x%02X on bus %d", h.dev.Addr, h.bus)
	}
	return nil
}

func (h *periphHandle) Write(ctx context.Context, tx []byte) error {
	return h.tx(ctx, tx, nil)
}

func (h *periphHandle) Read(ctx context.Context, count int) ([]byte, error) {
	buffer := make([]byte, count)
	if err := h.tx(ctx, nil, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func (h *periphHandle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	buffer := make([]byte, 1)
	if err := h.tx(ctx, []byte{register}, buffer); err != nil {
		return 0, err
	}
	return buffer[0], nil
}

func (h *periphHandle) WriteByteData(ctx context.Context, register, data byte) error {
	return h.tx(ctx, []byte{register, data}, nil)
}

func (h *periphHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	buffer := make([]byte, numBytes)
	if err := h.tx(ctx, []byte{register}, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func (h *periphHandle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	// On devices that use registers, this is equivalent to writing the register address
	// followed by the relevant bytes.
	rawData := make([]byte, len(data)+1)
	rawData[0] = register
	copy(rawData[1:], data)
	return h.tx(ctx, rawData, nil)
}

func (h *periphHandle) Close() error {
	h.closeOne.Do(func() {
		unlockAddress(h.bus, byte(h.dev.Addr))
	})
	return nil
}
