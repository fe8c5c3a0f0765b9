package stream

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	goutils "go.viam.com/utils"
)

// An Interrupt is a one-shot signal for a single consumption session.
type Interrupt struct {
	once sync.Once
	done chan struct{}
}

// NewInterrupt returns an armed interrupt.
func NewInterrupt() *Interrupt {
	return &Interrupt{done: make(chan struct{})}
}

// Fire triggers the interrupt. Calls after the first have no effect.
func (i *Interrupt) Fire() {
	i.once.Do(func() {
		close(i.done)
	})
}

// Done is closed once the interrupt fires.
func (i *Interrupt) Done() <-chan struct{} {
	return i.done
}

// Fired reports whether the interrupt has fired.
func (i *Interrupt) Fired() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

// NotifyInterrupt returns an interrupt fired by the first of sigs to arrive, SIGINT or
// SIGTERM if none are given. The returned function stops listening; it must be called.
func NotifyInterrupt(ctx context.Context, sigs ...os.Signal) (*Interrupt, func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	interrupt := NewInterrupt()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		select {
		case <-sigCh:
			interrupt.Fire()
		case <-stopCh:
		case <-ctx.Done():
		}
	})

	var stopOnce sync.Once
	return interrupt, func() {
		stopOnce.Do(func() {
			signal.Stop(sigCh)
			close(stopCh)
			wg.Wait()
		})
	}
}
