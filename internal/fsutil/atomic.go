// Package fsutil holds small filesystem helpers shared by the content
// store and the app layer's set-metadata and hook-install operations.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// UniqueName returns a filename unique among names produced by this
// function on this machine, of the form "<prefix><pid>-<nanos><suffix>".
func UniqueName(prefix, suffix string) string {
	return fmt.Sprintf("%s%d-%d%s", prefix, os.Getpid(), time.Now().UnixNano(), suffix)
}

// AtomicWrite writes data to path via a sibling temp file, fsyncs it, and
// renames it into place. The temp file is removed if anything fails before
// the rename. On most platforms the rename is atomic, so readers never see
// a partially written file.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, UniqueName(".tmp-", filepath.Ext(path)))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
