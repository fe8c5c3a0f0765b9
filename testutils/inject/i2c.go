package inject

import (
	"context"

	"go.aether.dev/aether/i2c"
)

// I2C is an injected I2C bus.
type I2C struct {
	i2c.Bus
	OpenHandleFunc func(addr byte) (i2c.Handle, error)
	CloseFunc      func() error
}

// OpenHandle calls the injected OpenHandle or the real version.
func (s *I2C) OpenHandle(addr byte) (i2c.Handle, error) {
	if s.OpenHandleFunc == nil {
		return s.Bus.OpenHandle(addr)
	}
	return s.OpenHandleFunc(addr)
}

// Close calls the injected Close or the real version.
func (s *I2C) Close() error {
	if s.CloseFunc == nil {
		return s.Bus.Close()
	}
	return s.CloseFunc()
}

// I2CHandle is an injected I2C handle.
type I2CHandle struct {
	i2c.Handle
	WriteFunc          func(ctx context.Context, tx []byte) error
	ReadFunc           func(ctx context.Context, count int) ([]byte, error)
	ReadByteDataFunc   func(ctx context.Context, register byte) (byte, error)
	WriteByteDataFunc  func(ctx context.Context, register, data byte) error
	ReadBlockDataFunc  func(ctx context.Context, register byte, numBytes uint8) ([]byte, error)
	WriteBlockDataFunc func(ctx context.Context, register byte, data []byte) error
	CloseFunc          func() error
}

// Write calls the injected Write or the real version.
func (h *I2CHandle) Write(ctx context.Context, tx []byte) error {
	if h.WriteFunc == nil {
		return h.Handle.Write(ctx, tx)
	}
	return h.WriteFunc(ctx, tx)
}

// Read calls the injected Read or the real version.
func (h *I2CHandle) Read(ctx context.Context, count int) ([]byte, error) {
	if h.ReadFunc == nil {
		return h.Handle.Read(ctx, count)
	}
	return h.ReadFunc(ctx, count)
}

// ReadByteData calls the injected ReadByteData or the real version.
func (h *I2CHandle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	if h.ReadByteDataFunc == nil {
		return h.Handle.ReadByteData(ctx, register)
	}
	return h.ReadByteDataFunc(ctx, register)
}

// WriteByteData calls the injected WriteByteData or the real version.
func (h *I2CHandle) WriteByteData(ctx context.Context, register, data byte) error {
	if h.WriteByteDataFunc == nil {
		return h.Handle.WriteByteData(ctx, register, data)
	}
	return h.WriteByteDataFunc(ctx, register, data)
}

// ReadBlockData calls the injected ReadBlockData or the real version.
func (h *I2CHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if h.ReadBlockDataFunc == nil {
		return h.Handle.ReadBlockData(ctx, register, numBytes)
	}
	return h.ReadBlockDataFunc(ctx, register, numBytes)
}

// WriteBlockData calls the injected WriteBlockData or the real version.
func (h *I2CHandle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	if h.WriteBlockDataFunc == nil {
		return h.Handle.WriteBlockData(ctx, register, data)
	}
	return h.WriteBlockDataFunc(ctx, register, data)
}

// Close calls the injected Close or the real version.
func (h *I2CHandle) Close() error {
	if h.CloseFunc == nil {
		return h.Handle.Close()
	}
	return h.CloseFunc()
}
