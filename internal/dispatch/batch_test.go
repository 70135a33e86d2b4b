package dispatch

import (
	"strings"
	"testing"

	"nit/internal/metadata"
)

func TestBatchesPerFileOneBatchEach(t *testing.T) {
	c := metadata.Contract{InvocationMode: metadata.ModePerFile}
	got := Batches(c, []string{"a.go", "b.go", "c.go"})
	if len(got) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(got))
	}
	for i, b := range got {
		if len(b) != 1 {
			t.Fatalf("batch %d should have exactly one file, got %v", i, b)
		}
	}
}

func TestBatchesOneShotSplitsOnMaxFilenames(t *testing.T) {
	c := metadata.Contract{InvocationMode: metadata.ModeOneShot, MaxFilenames: 2}
	got := Batches(c, []string{"a.go", "b.go", "c.go", "d.go", "e.go"})
	if len(got) != 3 {
		t.Fatalf("expected 3 batches of at most 2, got %d: %v", len(got), got)
	}
	if len(got[0]) != 2 || len(got[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %v", got)
	}
}

func TestBatchesOneShotSplitsOnArgvLength(t *testing.T) {
	c := metadata.Contract{InvocationMode: metadata.ModeOneShot}
	longName := strings.Repeat("x", maxArgvChars/3)
	got := Batches(c, []string{longName, longName, longName, longName})
	if len(got) < 2 {
		t.Fatalf("expected argv length cap to force more than one batch, got %d", len(got))
	}
}

func TestBatchesOneShotUnboundedIsSingleBatch(t *testing.T) {
	c := metadata.Contract{InvocationMode: metadata.ModeOneShot}
	got := Batches(c, []string{"a.go", "b.go", "c.go"})
	if len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("expected a single batch with everything, got %v", got)
	}
}

func TestBatchesStdinStreamRespectsMaxFilenamesOnly(t *testing.T) {
	c := metadata.Contract{InvocationMode: metadata.ModeStdinStream, MaxFilenames: 2}
	got := Batches(c, []string{"a.go", "b.go", "c.go"})
	if len(got) != 2 {
		t.Fatalf("expected 2 batches, got %d: %v", len(got), got)
	}
}
