package testutils

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RunMockClock advances mock by step roughly every millisecond of wall time until the
// returned function is called. It lets code that sleeps on the mock make progress.
func RunMockClock(mock *clock.Mock, step time.Duration) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond):
				mock.Add(step)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
