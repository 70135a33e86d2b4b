// Package fileset implements the file enumerator (component D): it walks
// either the full working tree or a git-derived change set and produces
// CandidateFile values that satisfy internal/predicate.File, with lazy,
// cached content sniffing so a file's bytes are read at most once per run
// regardless of how many predicates inspect it.
//
// Grounded on original_source/git.rs (FileType/FileInfo, the 8000-byte
// NUL sniff) and on the teacher's internal/source package's convention
// of an enumerator that returns a flat slice rather than streaming over a
// channel, since a lint run needs the whole file list before dispatch can
// build per-linter batches.
package fileset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"nit/internal/gitutil"
)

// Mode selects which files Enumerate considers.
type Mode int

const (
	// ModeAll walks the entire working tree, skipping VCS directories.
	ModeAll Mode = iota
	// ModeTracked lists every file git currently tracks (HEAD's tree).
	ModeTracked
	// ModeStaged lists files currently staged for commit (the index).
	ModeStaged
	// ModeChangedWorking lists files that differ between the working
	// tree and the index (unstaged changes) — used by pre-commit-style
	// "only lint what I touched" invocations.
	ModeChangedWorking
	// ModeChangedAgainst lists files that differ between the working
	// tree and an arbitrary ref (e.g. a merge-base), used by pre-push.
	ModeChangedAgainst
)

// sniffLimit is how many leading bytes are inspected for a NUL byte when
// classifying a file as text vs. binary.
const sniffLimit = 8000

// CandidateFile is one file under consideration for linting. It satisfies
// predicate.File, caching its own IsText/IsExecutable results so repeated
// predicate evaluation during dispatch does no repeated I/O.
type CandidateFile struct {
	root string
	path string // slash-separated, relative to root

	mu         sync.Mutex
	textCached bool
	text       bool
	textErr    error

	execKnown bool
	exec      bool
}

// Path returns the file's path relative to the enumeration root, using
// forward slashes regardless of platform.
func (f *CandidateFile) Path() string { return f.path }

// AbsPath returns the absolute filesystem path, for callers (the sandbox
// host) that need to open the real file.
func (f *CandidateFile) AbsPath() string { return filepath.Join(f.root, f.path) }

// IsText reports whether the file's first 8000 bytes contain no NUL byte. The
// result is cached after the first call.
func (f *CandidateFile) IsText() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textCached {
		return f.text, f.textErr
	}
	f.text, f.textErr = sniffIsText(f.AbsPath())
	f.textCached = true
	return f.text, f.textErr
}

// IsExecutable reports (executable, known). known is false when the
// enumeration source cannot answer the question at all — e.g. a platform
// whose filesystem doesn't expose a Unix executable bit and whose git
// history has no recorded object mode either. See spec.md §9: an
// unknown bit must never be treated as set.
func (f *CandidateFile) IsExecutable() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exec, f.execKnown
}

func sniffIsText(path string) (bool, error) {
	fh, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("FILESET_SNIFF: %w", err)
	}
	defer fh.Close()
	buf := make([]byte, sniffLimit)
	n, err := io.ReadFull(fh, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, fmt.Errorf("FILESET_SNIFF: %w", err)
	}
	return !bytes.Contains(buf[:n], []byte{0}), nil
}

// Enumerate produces the candidate file set for mode, rooted at root.
// against is only consulted for ModeChangedAgainst (a ref/revision to
// diff against); it is ignored for every other mode.
func Enumerate(ctx context.Context, root string, mode Mode, against string) ([]*CandidateFile, error) {
	switch mode {
	case ModeAll:
		return enumerateAll(root)
	case ModeTracked:
		recs, err := gitutil.TreeFiles(ctx, root, "HEAD")
		if err != nil {
			return nil, err
		}
		return fromRecords(root, recs), nil
	case ModeStaged:
		recs, err := gitutil.StagedFiles(ctx, root)
		if err != nil {
			return nil, err
		}
		return fromRecords(root, recs), nil
	case ModeChangedWorking:
		names, err := gitutil.DiffNames(ctx, root, "", false)
		if err != nil {
			return nil, err
		}
		return fromNames(root, names), nil
	case ModeChangedAgainst:
		names, err := gitutil.DiffNames(ctx, root, against, false)
		if err != nil {
			return nil, err
		}
		return fromNames(root, names), nil
	default:
		return nil, fmt.Errorf("FILESET_MODE: unknown enumeration mode %d", mode)
	}
}

// FromPaths builds candidates directly from an explicit, caller-supplied
// file list (the CLI's --files flag), bypassing git and the full-tree
// walk entirely.
func FromPaths(root string, paths []string) []*CandidateFile {
	return fromNames(root, paths)
}

func enumerateAll(root string) ([]*CandidateFile, error) {
	var out []*CandidateFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel == gitutil.VCSDir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		cf := &CandidateFile{root: root, path: filepath.ToSlash(rel)}
		if runtime.GOOS != "windows" {
			info, statErr := d.Info()
			if statErr == nil {
				cf.execKnown = true
				cf.exec = info.Mode()&0o111 != 0
			}
		}
		out = append(out, cf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("FILESET_WALK: %w", err)
	}
	sortByPath(out)
	return out, nil
}

func fromRecords(root string, recs []gitutil.FileRecord) []*CandidateFile {
	out := make([]*CandidateFile, 0, len(recs))
	for _, r := range recs {
		if gitutil.IsSymlink(r.Mode) {
			continue
		}
		out = append(out, &CandidateFile{
			root:      root,
			path:      r.Path,
			execKnown: true,
			exec:      gitutil.IsExecutable(r.Mode),
		})
	}
	sortByPath(out)
	return out
}

func fromNames(root string, names []string) []*CandidateFile {
	out := make([]*CandidateFile, 0, len(names))
	for _, name := range names {
		cf := &CandidateFile{root: root, path: name}
		if runtime.GOOS != "windows" {
			if info, err := os.Lstat(filepath.Join(root, name)); err == nil && info.Mode()&fs.ModeSymlink == 0 {
				cf.execKnown = true
				cf.exec = info.Mode()&0o111 != 0
			}
		}
		out = append(out, cf)
	}
	sortByPath(out)
	return out
}

func sortByPath(files []*CandidateFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
}
