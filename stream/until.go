package stream

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// Until bounds upstream by interrupt. Whichever of the interrupt or the end of upstream
// comes first ends the returned stream. When the interrupt wins, upstream is cancelled and
// released before the bounded stream ends with ErrInterrupted, and any value upstream
// produced after the interrupt is dropped. A failure to release upstream is combined with
// ErrInterrupted.
func Until[T any](upstream *Stream[T], interrupt <-chan struct{}) *Stream[T] {
	ctx, cancel := context.WithCancel(context.Background())
	bounded := newStream[T](cancel)
	goutils.PanicCapturingGo(func() {
		bounded.finish(forward(ctx, upstream, bounded.values, interrupt))
	})
	return bounded
}

func forward[T any](ctx context.Context, upstream *Stream[T], out chan<- T, interrupt <-chan struct{}) error {
	stop := func(err error) error {
		upstream.Cancel()
		return multierr.Combine(err, releaseErr(upstream.Err()))
	}
	for {
		select {
		case <-interrupt:
			return stop(ErrInterrupted)
		case <-ctx.Done():
			return stop(ctx.Err())
		case v, ok := <-upstream.Values():
			if !ok {
				<-upstream.Done()
				return upstream.Err()
			}
			select {
			case <-interrupt:
				return stop(ErrInterrupted)
			default:
			}
			select {
			case out <- v:
			case <-interrupt:
				return stop(ErrInterrupted)
			case <-ctx.Done():
				return stop(ctx.Err())
			}
		}
	}
}

// releaseErr drops the cancellation parts of a cancelled stream's error, leaving only
// what went wrong while releasing it.
func releaseErr(err error) error {
	var kept error
	for _, part := range multierr.Errors(err) {
		if isCancellation(part) {
			continue
		}
		kept = multierr.Append(kept, part)
	}
	return kept
}

func isCancellation(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}
