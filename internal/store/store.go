// Package store implements the content store (component A): a flat
// directory of immutable files keyed by their BLAKE3 digest.
//
// Entries are created by download (internal/fetch), never mutated in
// place, and persist across runs. Readers need no lock because an entry's
// bytes never change once published; publication is an atomic rename.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nit/internal/digest"
	"nit/internal/fsutil"
)

// ErrNotFound is returned by Path and OpenModule when no entry exists for
// a digest.
var ErrNotFound = errors.New("store: not found")

// ErrIntegrity is returned by Path and OpenModule when an on-disk entry's
// bytes no longer hash to its filename. Per spec.md §3, this is fatal for
// that entry: the store deletes it, and the fetcher's next attempt
// downloads it afresh.
type ErrIntegrity struct {
	Digest digest.Digest
}

func (e *ErrIntegrity) Error() string {
	return fmt.Sprintf("STORE_INTEGRITY: entry %s does not hash to its own name", e.Digest)
}

// Store is a directory of modules named by lowercase-hex digest.
type Store struct {
	root string
}

// Open resolves the content store root. Root is usually the result of
// DefaultRoot; Open itself just makes sure the directory exists.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("STORE_OPEN: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's backing directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(d digest.Digest) string {
	return filepath.Join(s.root, d.String()+".wasm")
}

// Has reports whether d is present and verified, without returning its
// contents. A failed verification deletes the stale entry, matching the
// "integrity failure" error kind in spec.md §7 (the offending entry is
// discarded so a subsequent fetch starts fresh).
func (s *Store) Has(d digest.Digest) bool {
	_, err := s.statAndVerify(d)
	return err == nil
}

// Path returns the on-disk path for d if, and only if, it is present and
// verified. Callers that only need a path rather than a reader use this
// instead of OpenModule.
func (s *Store) Path(d digest.Digest) (string, error) {
	return s.statAndVerify(d)
}

func (s *Store) statAndVerify(d digest.Digest) (string, error) {
	p := s.path(d)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("STORE_STAT: %w", err)
	}
	defer f.Close()

	got, err := digest.OfReader(f)
	if err != nil {
		return "", fmt.Errorf("STORE_READ: %w", err)
	}
	if got != d {
		os.Remove(p)
		return "", &ErrIntegrity{Digest: d}
	}
	return p, nil
}

// OpenModule streams the bytes for d after re-verifying its digest. Used
// by the dispatcher to read a remote module's bytes once it has been
// acquired, rather than trusting its on-disk path alone.
func (s *Store) OpenModule(d digest.Digest) (io.ReadCloser, error) {
	p, err := s.statAndVerify(d)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Put atomically publishes b under its own digest, verifying that b
// actually hashes to want. On a name collision the existing entry is
// treated as canonical and the new copy is discarded — spec.md §4.A.
func (s *Store) Put(b []byte, want digest.Digest) error {
	if !digest.Verify(b, want) {
		return fmt.Errorf("STORE_PUT: content hashes to %s, not expected %s", digest.Of(b), want)
	}
	dst := s.path(want)
	if s.Has(want) {
		// Existing entry is canonical; nothing to do.
		return nil
	}
	tmp := filepath.Join(s.root, fsutil.UniqueName("tmp-", ".wasm"))
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("STORE_PUT: write temp file: %w", err)
	}
	if err := syncFile(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("STORE_PUT: fsync: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		// Another writer may have published the same digest concurrently;
		// that's fine as long as the destination is now present.
		if s.Has(want) {
			return nil
		}
		return fmt.Errorf("STORE_PUT: rename: %w", err)
	}
	return nil
}

// TempFile returns a fresh, uniquely named temp file inside the store
// directory for staging a download before its digest is known. Siblings
// of the final destination guarantee the eventual rename is same-filesystem.
func (s *Store) TempFile() (*os.File, error) {
	tmp := filepath.Join(s.root, fsutil.UniqueName("tmp-", ".wasm"))
	return os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
}

// PutFile atomically publishes the file at tmpPath (previously obtained
// from TempFile) under digest want, verifying its contents first.
func (s *Store) PutFile(tmpPath string, want digest.Digest) error {
	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("STORE_PUT: %w", err)
	}
	got, err := digest.OfReader(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("STORE_PUT: %w", err)
	}
	if got != want {
		os.Remove(tmpPath)
		return fmt.Errorf("STORE_PUT: content hashes to %s, not expected %s", got, want)
	}
	dst := s.path(want)
	if s.Has(want) {
		os.Remove(tmpPath)
		return nil
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		if s.Has(want) {
			return nil
		}
		return fmt.Errorf("STORE_PUT: rename: %w", err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
