package testutil

import (
	"context"
	"sync"
	"testing"
)

// RunConcurrent releases n goroutines at once, each calling fn with its
// worker number, and waits for all of them. Panics fail the test.
func RunConcurrent(t *testing.T, n int, fn func(worker int)) {
	t.Helper()

	start := make(chan struct{})

	var wg sync.WaitGroup

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("worker %d panicked: %v", i, r)
				}
			}()

			<-start
			fn(i)
		}()
	}

	close(start)
	wg.Wait()
}

// Context returns a context bounded by TestTimeout and cancelled at cleanup
func Context(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)

	return ctx
}
