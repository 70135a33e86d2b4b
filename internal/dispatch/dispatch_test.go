package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nit/internal/config"
	"nit/internal/events"
	"nit/internal/metadata"
	"nit/internal/predicate"
	"nit/internal/sandbox"
	"nit/internal/store"
)

type fakeFile struct {
	path string
	text bool
}

func (f fakeFile) Path() string               { return f.path }
func (f fakeFile) AbsPath() string             { return f.path }
func (f fakeFile) IsText() (bool, error)       { return f.text, nil }
func (f fakeFile) IsExecutable() (bool, bool)  { return false, true }

type fakeHost struct {
	calls []sandbox.InstantiateOptions
}

func (h *fakeHost) Instantiate(ctx context.Context, moduleBytes []byte, opts sandbox.InstantiateOptions) (sandbox.Outcome, error) {
	h.calls = append(h.calls, opts)
	exit := 0
	for _, a := range opts.Argv {
		if a == "bad.go" {
			exit = 1
		}
	}
	return sandbox.Outcome{ExitCode: exit}, nil
}

func (h *fakeHost) Close(ctx context.Context) error { return nil }

func moduleWithContract(t *testing.T, c metadata.Contract) string {
	t.Helper()
	header := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	b, err := metadata.Write(header, c)
	if err != nil {
		t.Fatalf("metadata.Write: %v", err)
	}
	dir := t.TempDir()
	p := filepath.Join(dir, "linter.wasm")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestRunDispatchesLocalLinterAndAggregatesReport(t *testing.T) {
	root := t.TempDir()
	modulePath := moduleWithContract(t, metadata.Contract{
		Filter:         predicate.All(),
		InvocationMode: metadata.ModeOneShot,
		ArgvTemplate:   []metadata.Token{metadata.Literal("--check"), metadata.FilesToken()},
		Argv0:          "mylint",
	})

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	host := &fakeHost{}
	d := New(st, nil, host, events.New(""), root)

	cfg := config.Config{
		Include: predicate.All(),
		Exclude: predicate.None(),
		Linters: []config.Linter{
			{Name: "mylint", Location: config.Location{Kind: config.LocationLocal, Path: modulePath}},
		},
	}

	files := []File{
		fakeFile{path: "good.go", text: true},
		fakeFile{path: "bad.go", text: true},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rep, err := d.Run(ctx, cfg, files)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(host.calls) != 1 {
		t.Fatalf("expected a single one-shot invocation, got %d", len(host.calls))
	}
	if rep.Clean() {
		t.Fatalf("expected a non-clean report since the fake host reports exit 1")
	}
	if len(rep.Findings) != 1 || rep.Findings[0].Linter != "mylint" {
		t.Fatalf("unexpected findings: %+v", rep.Findings)
	}
}

func TestRunMarksAcquisitionFailureWithoutAbortingOtherLinters(t *testing.T) {
	root := t.TempDir()
	goodModule := moduleWithContract(t, metadata.Contract{
		Filter:         predicate.All(),
		InvocationMode: metadata.ModeOneShot,
		ArgvTemplate:   []metadata.Token{metadata.FilesToken()},
	})

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	host := &fakeHost{}
	d := New(st, nil, host, events.New(""), root)

	cfg := config.Config{
		Include: predicate.All(),
		Exclude: predicate.None(),
		Linters: []config.Linter{
			{Name: "missing", Location: config.Location{Kind: config.LocationLocal, Path: "does-not-exist.wasm"}},
			{Name: "present", Location: config.Location{Kind: config.LocationLocal, Path: goodModule}},
		},
	}
	files := []File{fakeFile{path: "a.go", text: true}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rep, err := d.Run(ctx, cfg, files)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Failed) != 1 || rep.Failed[0] != "missing" {
		t.Fatalf("expected \"missing\" to be recorded as failed, got %v", rep.Failed)
	}
	if len(host.calls) != 1 {
		t.Fatalf("expected the present linter to still run, got %d calls", len(host.calls))
	}
}
