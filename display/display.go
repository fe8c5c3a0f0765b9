// Package display defines the contract of a panel that themes render frames to.
package display

import "image"

// A Driver draws whole frames to a panel.
type Driver interface {
	// Width is the panel width in pixels.
	Width() int
	// Height is the panel height in pixels.
	Height() int
	// DPI is the panel's pixel density, used to size text.
	DPI() float64
	// Draw replaces the panel contents with img.
	Draw(img image.Image) error
	Close() error
}
