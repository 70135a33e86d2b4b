package store

import (
	"os"
	"path/filepath"
	"testing"

	"nit/internal/digest"
)

func TestPutAndPathRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content := []byte("fake wasm module bytes")
	d := digest.Of(content)

	if err := s.Put(content, d); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !s.Has(d) {
		t.Fatalf("expected Has(d) to be true after Put")
	}
	p, err := s.Path(d)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestPutRejectsWrongDigest(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	wrong := digest.Of([]byte("something else entirely"))
	if err := s.Put([]byte("actual content"), wrong); err == nil {
		t.Fatalf("expected Put to reject mismatched digest")
	}
	if s.Has(wrong) {
		t.Fatalf("rejected Put must not publish an entry")
	}
}

func TestPutIsIdempotentOnCollision(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content := []byte("idempotent content")
	d := digest.Of(content)
	if err := s.Put(content, d); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := s.Put(content, d); err != nil {
		t.Fatalf("second Put: %v", err)
	}
}

func TestHasDeletesCorruptedEntry(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content := []byte("original content")
	d := digest.Of(content)
	if err := s.Put(content, d); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Corrupt the entry in place, simulating on-disk bit rot.
	p := filepath.Join(root, d.String()+".wasm")
	if err := os.WriteFile(p, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("corrupt write: %v", err)
	}

	if s.Has(d) {
		t.Fatalf("Has should detect corrupted content as absent")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("corrupted entry should have been deleted, stat err = %v", err)
	}
}

func TestPutFileViaTempFile(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f, err := s.TempFile()
	if err != nil {
		t.Fatalf("TempFile: %v", err)
	}
	content := []byte("staged download bytes")
	if _, err := f.Write(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	tmpPath := f.Name()
	f.Close()

	d := digest.Of(content)
	if err := s.PutFile(tmpPath, d); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if !s.Has(d) {
		t.Fatalf("expected entry present after PutFile")
	}
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Fatalf("temp file should be gone after PutFile")
	}
}
