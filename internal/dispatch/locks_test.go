package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFixLocksSerializesOverlappingPaths(t *testing.T) {
	var fl FixLocks
	var active int32
	var sawOverlap bool
	var mu sync.Mutex

	run := func(paths []string) {
		unlock := fl.Acquire(paths)
		defer unlock()
		n := atomic.AddInt32(&active, 1)
		if n > 1 {
			mu.Lock()
			sawOverlap = true
			mu.Unlock()
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run([]string{"shared.go"})
		}()
	}
	wg.Wait()

	if sawOverlap {
		t.Fatalf("expected fix locks to serialize access to a shared path")
	}
}

func TestFixLocksDisjointPathsRunConcurrently(t *testing.T) {
	var fl FixLocks
	start := make(chan struct{})
	var wg sync.WaitGroup
	var inFlight int32
	var maxInFlight int32

	for _, p := range []string{"a.go", "b.go"} {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			unlock := fl.Acquire([]string{p})
			n := atomic.AddInt32(&inFlight, 1)
			if n > maxInFlight {
				atomic.StoreInt32(&maxInFlight, n)
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			unlock()
		}()
	}
	close(start)
	wg.Wait()

	if maxInFlight < 2 {
		t.Fatalf("expected disjoint paths to run concurrently, max in flight was %d", maxInFlight)
	}
}
