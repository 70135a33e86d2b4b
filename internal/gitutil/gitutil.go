// Package gitutil wraps the handful of git plumbing commands the file
// enumerator treats as an opaque "external change-detection collaborator"
// (spec.md §4.D). It is a thin shell-out layer, grounded on
// original_source/git.rs and on the teacher's internal/source/
// git_provider.go convention of running git via os/exec and wrapping
// failures with the command and its combined output.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// VCSDir is the directory the "all" enumeration mode skips.
const VCSDir = ".git"

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("GIT_EXEC: git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// TopLevel returns the repository's working-tree root.
func TopLevel(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// HooksDir returns the directory git looks in for hooks.
func HooksDir(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// DiffNames returns the paths changed relative to against (e.g. "HEAD" or
// the empty string for the index), as an opaque list per spec.md §4.D.
// staged selects "--cached" (changes staged for commit) instead of the
// working-tree diff.
func DiffNames(ctx context.Context, root, against string, staged bool) ([]string, error) {
	args := []string{"diff", "--no-ext-diff", "--no-textconv", "--ignore-submodules", "--name-only", "-z"}
	if staged {
		args = append(args, "--cached")
	}
	if against != "" {
		args = append(args, against)
	}
	out, err := run(ctx, root, args...)
	if err != nil {
		return nil, fmt.Errorf("GIT_DIFF: %w", err)
	}
	return splitNUL(out), nil
}

// fileRecord is one parsed row of `git ls-tree`/`git ls-files` output.
type fileRecord struct {
	Mode string
	Path string
}

// TreeFiles lists every file in treeish (e.g. "HEAD"), recursively.
func TreeFiles(ctx context.Context, root, treeish string) ([]fileRecord, error) {
	out, err := run(ctx, root,
		"ls-tree", "-r", "-z", "--full-tree",
		"--format=%(objectmode)%x00%(path)", treeish)
	if err != nil {
		return nil, fmt.Errorf("GIT_LS_TREE: %w", err)
	}
	return parseRecords(out)
}

// StagedFiles lists every file currently in the index.
func StagedFiles(ctx context.Context, root string) ([]fileRecord, error) {
	out, err := run(ctx, root,
		"ls-files", "--cached", "-z", "--full-name",
		"--format=%(objectmode)%x00%(path)")
	if err != nil {
		return nil, fmt.Errorf("GIT_LS_FILES: %w", err)
	}
	return parseRecords(out)
}

func parseRecords(nulSeparated []byte) ([]fileRecord, error) {
	fields := bytes.Split(nulSeparated, []byte{0})
	var out []fileRecord
	for i := 0; i+1 < len(fields); i += 2 {
		mode := string(fields[i])
		path := string(fields[i+1])
		if mode == "" && path == "" {
			continue
		}
		out = append(out, fileRecord{Mode: mode, Path: path})
	}
	return out, nil
}

func splitNUL(b []byte) []string {
	parts := bytes.Split(bytes.TrimRight(b, "\x00"), []byte{0})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		out = append(out, string(p))
	}
	return out
}

// IsSymlink reports whether a ls-tree/ls-files mode string denotes a
// symlink (git's "120000" object mode).
func IsSymlink(mode string) bool { return mode == "120000" }

// IsExecutable reports whether a ls-tree/ls-files mode string denotes the
// executable bit (git's "100755" object mode).
func IsExecutable(mode string) bool { return mode == "100755" }

// FileRecord is the exported view of a parsed ls-tree/ls-files row, used
// by internal/fileset to classify candidates without a second stat.
type FileRecord = fileRecord

// Paths returns every record's path, in order.
func Paths(recs []FileRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Path
	}
	return out
}

// Modes maps every record's path to its git object mode.
func Modes(recs []FileRecord) map[string]string {
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		out[r.Path] = r.Mode
	}
	return out
}
