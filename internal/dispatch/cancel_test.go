package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestWithGraceOutlivesParentCancellation(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, stop := withGrace(parent, 50*time.Millisecond)
	defer stop()

	parentCancel()

	select {
	case <-ctx.Done():
		t.Fatalf("expected grace period to outlive immediate parent cancellation")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-ctx.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected ctx to be canceled once the grace period elapsed")
	}
}

func TestWithGraceStopReleasesPromptly(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	defer parentCancel()
	ctx, stop := withGrace(parent, time.Hour)
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected stop to cancel ctx promptly without waiting out the grace period")
	}
}
