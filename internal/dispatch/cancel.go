package dispatch

import (
	"context"
	"time"
)

// DefaultGracePeriod is how long an in-flight invocation is given to
// return on its own after its run is canceled, before the context
// driving it is itself canceled and wazero tears the module down.
const DefaultGracePeriod = 5 * time.Second

// withGrace derives a context that outlives parent's cancellation by
// grace. Call the returned stop func once the invocation it guards has
// returned, successfully or not, to release the background goroutine
// immediately instead of waiting out the grace window.
func withGrace(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			select {
			case <-time.After(grace):
			case <-done:
			}
		case <-done:
		}
		cancel()
	}()
	return ctx, func() { close(done) }
}
