package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nit/internal/predicate"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, ".nit.json5", Sample)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load(sample): %v", err)
	}
	if len(cfg.Linters) != 2 {
		t.Fatalf("expected 2 linters in the sample config, got %d", len(cfg.Linters))
	}
	if cfg.Linters[0].Location.Kind != LocationRemote {
		t.Fatalf("expected first linter to be remote")
	}
	if cfg.Linters[1].Location.Kind != LocationLocal {
		t.Fatalf("expected second linter to be local")
	}
}

func TestLoadAcceptsComments(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, ".nit.jsonc", `{
		// a comment
		"include": { "kind": "all" },
		"linters": [
			{ "name": "x", "location": { "local": "x.wasm" } },
		],
	}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Linters) != 1 {
		t.Fatalf("expected 1 linter, got %d", len(cfg.Linters))
	}
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	cfg := Config{
		Include: predicate.All(),
		Exclude: predicate.None(),
		Linters: []Linter{
			{Name: "dup", Location: Location{Kind: LocationLocal, Path: "a.wasm"}},
			{Name: "dup", Location: Location{Kind: LocationLocal, Path: "b.wasm"}},
		},
	}
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected duplicate linter name to be rejected")
	}
}

func TestValidateRejectsConflictingHashes(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, ".nit.json", `{
		"include": { "kind": "all" },
		"linters": [
			{ "name": "a", "location": { "remote": { "url": "https://x/m.wasm", "hash": "`+zeroHash()+`" } } },
			{ "name": "b", "location": { "remote": { "url": "https://x/m.wasm", "hash": "`+oneHash()+`" } } }
		]
	}`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected conflicting hashes for the same url to be rejected")
	}
}

func TestDiscoverProbesCandidateNames(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".nit.jsonc", `{"include":{"kind":"all"},"linters":[]}`)
	p, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if filepath.Base(p) != ".nit.jsonc" {
		t.Fatalf("expected to discover .nit.jsonc, got %s", p)
	}
}

func zeroHash() string { return strings.Repeat("0", 64) }

func oneHash() string { return strings.Repeat("1", 64) }
