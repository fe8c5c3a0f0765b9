// Package theme renders measurements to a display.
package theme

import (
	"context"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"

	"go.aether.dev/aether/display"
	"go.aether.dev/aether/fanout"
	"go.aether.dev/aether/logging"
	"go.aether.dev/aether/measurement"
	"go.aether.dev/aether/utils"
)

const (
	margin = 4.0
	// lineFill is the share of a line's height taken up by text.
	lineFill = 0.6
)

// MultiLine shows the latest value of each of a fixed list of measures, one per line.
type MultiLine struct {
	driver   display.Driver
	measures []measurement.Measure
	face     *truetype.Options
	logger   logging.Logger
	workers  utils.StoppableWorkers

	mu       sync.Mutex
	latest   map[measurement.Measure]measurement.Measurement
	received []fanout.Notification
	err      error
	done     chan struct{}
}

// NewMultiLine subscribes to subject and draws an initial frame. Subscribe before the
// subject publishes anything.
func NewMultiLine(
	ctx context.Context,
	driver display.Driver,
	measures []measurement.Measure,
	subject *fanout.Subject,
	logger logging.Logger,
) (*MultiLine, error) {
	if len(measures) == 0 {
		return nil, errors.New("multi-line theme needs at least one measure")
	}
	lineHeight := float64(driver.Height()) / float64(len(measures))
	// points are 1/72 inch
	size := lineHeight * lineFill * 72 / driver.DPI()

	t := &MultiLine{
		driver:   driver,
		measures: append([]measurement.Measure(nil), measures...),
		face:     &truetype.Options{Size: size, DPI: driver.DPI()},
		logger:   logger,
		latest:   map[measurement.Measure]measurement.Measurement{},
		done:     make(chan struct{}),
	}
	if err := t.render(); err != nil {
		return nil, err
	}

	t.workers = utils.NewStoppableWorkers(ctx)
	notifications, err := subject.Subscribe(t.workers.Context())
	if err != nil {
		t.workers.Stop()
		return nil, err
	}
	t.workers.AddWorkers(func(ctx context.Context) {
		t.run(notifications)
	})
	return t, nil
}

func (t *MultiLine) run(notifications <-chan fanout.Notification) {
	defer close(t.done)
	for n := range notifications {
		t.mu.Lock()
		t.received = append(t.received, n)
		t.mu.Unlock()

		switch n.Kind {
		case fanout.Next:
			t.mu.Lock()
			t.latest[n.Measurement.Measure()] = n.Measurement
			t.mu.Unlock()
			if err := t.render(); err != nil {
				t.fail(err)
				return
			}
		case fanout.Completed:
			t.fail(t.render())
			return
		case fanout.Error:
			t.fail(n.Err)
			return
		}
	}
}

func (t *MultiLine) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Lines returns the text of every line, in measure order.
func (t *MultiLine) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := make([]string, 0, len(t.measures))
	for _, m := range t.measures {
		if latest, ok := t.latest[m]; ok {
			lines = append(lines, latest.String())
		} else {
			lines = append(lines, m.String()+": -")
		}
	}
	return lines
}

func (t *MultiLine) render() error {
	dc := gg.NewContext(t.driver.Width(), t.driver.Height())
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(font, t.face))
	dc.SetColor(color.Black)

	lineHeight := float64(t.driver.Height()) / float64(len(t.measures))
	for i, line := range t.Lines() {
		dc.DrawStringAnchored(line, margin, lineHeight*(float64(i)+0.5), 0, 0.5)
	}
	return errors.Wrap(t.driver.Draw(dc.Image()), "drawing frame")
}

// Wait blocks until the subject completes or fails, or ctx is done. It returns the
// subject's error or a rendering error.
func (t *MultiLine) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Received returns every notification the theme has handled, in order.
func (t *MultiLine) Received() []fanout.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]fanout.Notification(nil), t.received...)
}

// Close unsubscribes and stops rendering.
func (t *MultiLine) Close() error {
	t.workers.Stop()
	return nil
}
