package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var finished atomic.Int32
	blocking := func(ctx context.Context) {
		<-ctx.Done()
		finished.Add(1)
	}
	sw := NewStoppableWorkers(context.Background(), blocking, blocking)
	sw.AddWorkers(blocking)
	sw.Stop()
	test.That(t, finished.Load(), test.ShouldEqual, int32(3))

	sw.AddWorkers(blocking)
	test.That(t, finished.Load(), test.ShouldEqual, int32(3))
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)
}

func TestStoppableWorkersWait(t *testing.T) {
	var finished atomic.Int32
	sw := NewStoppableWorkers(context.Background(), func(context.Context) {
		finished.Add(1)
	})
	sw.Wait()
	test.That(t, finished.Load(), test.ShouldEqual, int32(1))
	sw.Stop()
}

func TestStoppableWorkersParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sw := NewStoppableWorkers(ctx, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	sw.Stop()
}
