package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCappedBufferTruncates(t *testing.T) {
	c := newCappedBuffer(8)
	c.Write([]byte("0123456789"))
	if !c.truncated {
		t.Fatalf("expected truncated=true after writing past the limit")
	}
	if len(c.Bytes()) != 8 {
		t.Fatalf("expected 8 captured bytes, got %d", len(c.Bytes()))
	}
}

func TestCappedBufferUnderLimit(t *testing.T) {
	c := newCappedBuffer(100)
	c.Write([]byte("short"))
	if c.truncated {
		t.Fatalf("did not expect truncation under the limit")
	}
	if string(c.Bytes()) != "short" {
		t.Fatalf("unexpected buffer contents: %q", c.Bytes())
	}
}

func TestDigestAllAndChangedPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	before, err := digestAll([]string{path})
	if err != nil {
		t.Fatalf("digestAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	after, err := digestAll([]string{path})
	if err != nil {
		t.Fatalf("digestAll: %v", err)
	}
	changed := changedPaths([]string{path}, before, after)
	if len(changed) != 1 || changed[0] != path {
		t.Fatalf("expected %s to be reported changed, got %v", path, changed)
	}
}

func TestDigestAllToleratesMissingFile(t *testing.T) {
	digests, err := digestAll([]string{filepath.Join(t.TempDir(), "missing")})
	if err != nil {
		t.Fatalf("digestAll should not fail for a missing watch path: %v", err)
	}
	if len(digests) != 0 {
		t.Fatalf("expected no digest entry for a missing file, got %v", digests)
	}
}
