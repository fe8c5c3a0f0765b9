package stream

import (
	"context"

	"go.uber.org/multierr"
)

// Outcome is how a drained stream ended.
type Outcome int

const (
	// Completed means the stream ended normally.
	Completed Outcome = iota
	// Cancelled means the interrupt or the caller's context ended the stream.
	Cancelled
	// Failed means the stream or the callback returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Drain calls fn for each value of s in emission order until s ends. An error from fn
// cancels s. Drain returns only after s has released its resource.
func Drain[T any](ctx context.Context, s *Stream[T], fn func(T) error) (Outcome, error) {
	var fnErr error
drain:
	for {
		select {
		case v, ok := <-s.Values():
			if !ok {
				break drain
			}
			if err := fn(v); err != nil {
				fnErr = err
				s.Cancel()
				break drain
			}
		case <-ctx.Done():
			s.Cancel()
			break drain
		}
	}
	<-s.Done()

	if fnErr != nil {
		return Failed, fnErr
	}
	switch err := s.Err(); {
	case err == nil:
		return Completed, nil
	case onlyCancelled(err):
		return Cancelled, nil
	default:
		return Failed, err
	}
}

// onlyCancelled reports whether every part of err is an interrupt or a context
// cancellation.
func onlyCancelled(err error) bool {
	for _, part := range multierr.Errors(err) {
		if !isCancellation(part) {
			return false
		}
	}
	return true
}
