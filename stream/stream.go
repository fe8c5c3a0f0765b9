// Package stream composes resource-owning measurement sources into streams that release
// their resource exactly once, stop on a user interrupt, and drain in order.
package stream

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.aether.dev/aether/logging"
)

// ErrInterrupted ends a stream bounded by Until when the interrupt fires first.
var ErrInterrupted = errors.New("stream interrupted")

// A Source produces values into a channel and owns a resource released by Close.
type Source[T any] interface {
	Stream(ctx context.Context, out chan<- T) error
	Close(ctx context.Context) error
}

// A Stream is a running producer. Values is closed when the producer has finished and its
// resource has been released; Done is closed after that, at which point Err is valid.
type Stream[T any] struct {
	values chan T
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

func newStream[T any](cancel context.CancelFunc) *Stream[T] {
	return &Stream[T]{
		values: make(chan T),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Values returns the channel values are delivered on.
func (s *Stream[T]) Values() <-chan T {
	return s.values
}

// Done is closed once the stream has ended and released everything it held.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns why the stream ended. It is nil for a normal completion and must only be
// read after Done is closed.
func (s *Stream[T]) Err() error {
	return s.err
}

// Cancel stops the stream and waits for its resource to be released.
func (s *Stream[T]) Cancel() {
	s.cancel()
	<-s.done
}

func (s *Stream[T]) finish(err error) {
	s.err = err
	close(s.values)
	s.cancel()
	close(s.done)
}

// Using acquires a source and streams it on a new goroutine. An acquire error is returned
// as-is and nothing is started. Otherwise the source is closed exactly once when the
// producer ends, whether it completed, failed, was cancelled or panicked, and before the
// stream's values channel is closed.
func Using[T any](
	ctx context.Context,
	acquire func(ctx context.Context) (Source[T], error),
	logger logging.Logger,
) (*Stream[T], error) {
	src, err := acquire(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := newStream[T](cancel)
	goutils.PanicCapturingGoWithCallback(func() {
		s.finish(produce(ctx, src, s.values, logger))
	}, func(r interface{}) {
		s.finish(errors.Errorf("stream producer panicked: %v", r))
	})
	return s, nil
}

func produce[T any](ctx context.Context, src Source[T], out chan<- T, logger logging.Logger) (err error) {
	defer func() {
		logger.Debug("releasing stream source")
		if closeErr := src.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = multierr.Combine(err, errors.Wrap(closeErr, "releasing stream source"))
		}
	}()
	return src.Stream(ctx, out)
}
