// Package utils contains small concurrency helpers shared by consumers.
package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a group of goroutines sharing one context. Stop cancels that context
// and waits for every worker to return.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Wait()
	Context() context.Context
}

type stoppableWorkers struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// NewStoppableWorkers starts funcs under a context derived from parent.
func NewStoppableWorkers(parent context.Context, funcs ...func(context.Context)) StoppableWorkers {
	ctx, cancel := context.WithCancel(parent)
	sw := &stoppableWorkers{ctx: ctx, cancel: cancel}
	sw.AddWorkers(funcs...)
	return sw
}

// AddWorkers starts one goroutine per function. It does nothing once the group has been
// stopped.
func (sw *stoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ctx.Err() != nil {
		return
	}

	sw.workers.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.workers.Done()
			f(sw.ctx)
		})
	}
}

// Stop cancels the workers' context and waits for them.
func (sw *stoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.cancel()
	sw.workers.Wait()
}

// Wait blocks until every worker has returned on its own.
func (sw *stoppableWorkers) Wait() {
	sw.workers.Wait()
}

// Context returns the context the workers run under.
func (sw *stoppableWorkers) Context() context.Context {
	return sw.ctx
}
