// Package simulated implements a display that writes each frame to a PNG file.
package simulated

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.aether.dev/aether/display"
	"go.aether.dev/aether/logging"
)

// Config describes the simulated panel.
type Config struct {
	OutDir string
	Width  int
	Height int
	DPI    float64
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.OutDir == "" {
		return errors.Errorf("%s: out_dir is required", path)
	}
	if conf.Width <= 0 || conf.Height <= 0 {
		return errors.Errorf("%s: panel size %dx%d must be positive", path, conf.Width, conf.Height)
	}
	if conf.DPI <= 0 {
		return errors.Errorf("%s: dpi must be positive", path)
	}
	return nil
}

// Driver writes frames as frame-0000.png, frame-0001.png and so on.
type Driver struct {
	conf   Config
	logger logging.Logger

	mu     sync.Mutex
	frames int
	closed bool
}

var _ display.Driver = (*Driver)(nil)

// New creates the output directory and returns a driver writing to it.
func New(conf Config, logger logging.Logger) (*Driver, error) {
	if err := conf.Validate("display"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(conf.OutDir, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating display output directory")
	}
	return &Driver{conf: conf, logger: logger}, nil
}

// Width returns the panel width.
func (d *Driver) Width() int { return d.conf.Width }

// Height returns the panel height.
func (d *Driver) Height() int { return d.conf.Height }

// DPI returns the panel density.
func (d *Driver) DPI() float64 { return d.conf.DPI }

// Draw writes img as the next frame.
func (d *Driver) Draw(img image.Image) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("display is closed")
	}
	if got := img.Bounds().Size(); got.X != d.conf.Width || got.Y != d.conf.Height {
		return errors.Errorf("frame is %dx%d, panel is %dx%d", got.X, got.Y, d.conf.Width, d.conf.Height)
	}

	path := filepath.Join(d.conf.OutDir, fmt.Sprintf("frame-%04d.png", d.frames))
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := png.Encode(f, img); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	d.frames++
	d.logger.Debugw("wrote frame", "path", path)
	return nil
}

// Frames returns how many frames have been written.
func (d *Driver) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Close stops accepting frames.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
