package fileset

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestEnumerateAllSkipsGitDir(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.go"), "package a\n")
	mustWrite(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")

	files, err := Enumerate(context.Background(), root, ModeAll, "")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(files) != 1 || files[0].Path() != "a.go" {
		t.Fatalf("expected exactly [a.go], got %v", pathsOf(files))
	}
}

func TestIsTextDetectsBinary(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "bin.dat"), "abc\x00def")
	mustWrite(t, filepath.Join(root, "text.txt"), "hello world\n")

	files, err := Enumerate(context.Background(), root, ModeAll, "")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	byPath := map[string]*CandidateFile{}
	for _, f := range files {
		byPath[f.Path()] = f
	}
	if isText, err := byPath["bin.dat"].IsText(); err != nil || isText {
		t.Fatalf("expected bin.dat to be classified binary, got isText=%v err=%v", isText, err)
	}
	if isText, err := byPath["text.txt"].IsText(); err != nil || !isText {
		t.Fatalf("expected text.txt to be classified text, got isText=%v err=%v", isText, err)
	}
}

func TestIsTextCachesResult(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	mustWrite(t, path, "hello\n")
	cf := &CandidateFile{root: root, path: "a.txt"}

	first, err := cf.IsText()
	if err != nil {
		t.Fatalf("IsText: %v", err)
	}
	if err := os.WriteFile(path, []byte{0, 0, 0}, 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	second, err := cf.IsText()
	if err != nil {
		t.Fatalf("IsText second call: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached IsText result to be stable across file mutation")
	}
}

func TestIsExecutableUnknownOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		cf := &CandidateFile{}
		exec, known := cf.IsExecutable()
		if known {
			t.Fatalf("expected known=false on windows with no source of truth")
		}
		_ = exec
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func pathsOf(files []*CandidateFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path()
	}
	return out
}
