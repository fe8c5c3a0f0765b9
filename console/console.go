// Package console prints measurements as timestamped lines.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/benbjohnson/clock"

	"go.aether.dev/aether/measurement"
)

// TimeLayout is the local wall-clock format prefixed to each line.
const TimeLayout = "15:04"

// Printer writes "[<time>] <measurement>" lines.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	clock clock.Clock
}

// NewPrinter returns a printer writing to out. A nil clock uses the wall clock.
func NewPrinter(out io.Writer, clk clock.Clock) *Printer {
	if clk == nil {
		clk = clock.New()
	}
	return &Printer{out: out, clock: clk}
}

// Print writes one line for m.
func (p *Printer) Print(m measurement.Measurement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "[%s] %s\n", p.clock.Now().Local().Format(TimeLayout), m)
	return err
}
