// Package sandbox implements the sandbox host (component F): it runs a
// linter's WASM module under a capability-restricted WASI environment —
// no network, filesystem access confined to a single preopened directory
// — and captures its exit code, stdout/stderr, and whether it mutated any
// files.
//
// Grounded on original_source/engine.rs's run_linter_command (preopened
// top-level directory with allow_tcp/allow_udp/allow_ip_name_lookup all
// false, capped in-memory stdout/stderr pipes, argv assembled from
// metadata.ArgBlocks with per-block overrides) and on the teacher's
// pkg/adapterapi.Adapter narrow-interface convention for the Host type.
// wazero stands in for wasmtime: nit targets WASI preview1 core modules
// rather than wasmtime's preview2 Command component, since that is what
// wazero (a pure-Go, no-cgo runtime — the only WASM runtime represented
// anywhere in the example corpus) supports natively.
//
// Only the repository root is preopened; there is no separate per-invocation
// scratch directory mount, matching run_linter_command (which preopens the
// same single directory throughout). A linter that wants scratch space
// writes under the root it already has.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"nit/internal/digest"
)

// maxCapturedOutput bounds how much of a module's stdout/stderr is kept
// in memory; the remainder is dropped and Outcome.Truncated is set.
const maxCapturedOutput = 1024 * 1024

// truncationMarker is appended to captured output that hit maxCapturedOutput.
const truncationMarker = "\n...[truncated]\n"

// DefaultDeadline is used when InstantiateOptions.Deadline is zero.
const DefaultDeadline = 2 * time.Minute

// Host runs linter modules under sandboxing. The production implementation
// is wazeroHost; dispatch depends on this interface so tests can supply a
// fake.
type Host interface {
	// Instantiate compiles (if not already cached) and runs moduleBytes
	// once with the given options, returning its outcome.
	Instantiate(ctx context.Context, moduleBytes []byte, opts InstantiateOptions) (Outcome, error)
	// Close releases any runtime-wide resources (compilation caches).
	Close(ctx context.Context) error
}

// InstantiateOptions configures a single invocation.
type InstantiateOptions struct {
	// PreopenDir is the single host directory the module may access,
	// usually the repository's top level.
	PreopenDir string
	// ReadWrite mounts PreopenDir read-write instead of read-only. Set
	// when the contract declares the invocation may rewrite files
	// (fix mode); the dispatcher's per-file lock (§5) must already be
	// held for every watched path before this is set true.
	ReadWrite bool
	// Argv is the full argument vector, including argv[0].
	Argv []string
	// Env is the environment passed to the module; nit does not inherit
	// the host's environment by default.
	Env map[string]string
	// Deadline, if non-zero, forcibly stops the module after this long.
	Deadline time.Duration
	// WatchDigests are host-relative paths whose content digest is taken
	// before and after the call, to populate Outcome.Mutated.
	WatchDigests []string
}

// Outcome is the result of one module invocation.
type Outcome struct {
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	Truncated  bool
	Mutated    []string
	WallTime   time.Duration
}

type wazeroHost struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
}

// NewHost builds a Host backed by wazero. When cacheDir is non-empty,
// compiled modules are cached on disk under it via wazero's own
// directory-backed compilation cache, so a module compiled in one nit
// invocation is not recompiled in the next; an empty cacheDir falls back
// to an in-process-only cache.
func NewHost(ctx context.Context, cacheDir string) (Host, error) {
	var cache wazero.CompilationCache
	if cacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("SANDBOX_INIT: %w", err)
		}
		cache = c
	} else {
		cache = wazero.NewCompilationCache()
	}
	cfg := wazero.NewRuntimeConfig().WithCompilationCache(cache).WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return nil, fmt.Errorf("SANDBOX_INIT: %w", err)
	}
	return &wazeroHost{runtime: rt, cache: cache}, nil
}

func (h *wazeroHost) Close(ctx context.Context) error {
	if err := h.runtime.Close(ctx); err != nil {
		return fmt.Errorf("SANDBOX_CLOSE: %w", err)
	}
	return h.cache.Close(ctx)
}

func (h *wazeroHost) Instantiate(ctx context.Context, moduleBytes []byte, opts InstantiateOptions) (Outcome, error) {
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, deadline)
	defer cancel()

	before, err := digestAll(opts.WatchDigests)
	if err != nil {
		return Outcome{}, &InvocationError{Code: "SANDBOX_WATCH", Err: err}
	}

	stdout := newCappedBuffer(maxCapturedOutput)
	stderr := newCappedBuffer(maxCapturedOutput)

	fsConfig := wazero.NewFSConfig()
	if opts.ReadWrite {
		fsConfig = fsConfig.WithDirMount(opts.PreopenDir, "/")
	} else {
		fsConfig = fsConfig.WithReadOnlyDirMount(opts.PreopenDir, "/")
	}

	modCfg := wazero.NewModuleConfig().
		WithStdout(stdout).
		WithStderr(stderr).
		WithFSConfig(fsConfig).
		WithArgs(opts.Argv...)
	for k, v := range opts.Env {
		modCfg = modCfg.WithEnv(k, v)
	}

	start := time.Now()
	compiled, err := h.runtime.CompileModule(ctx, moduleBytes)
	if err != nil {
		return Outcome{}, &InvocationError{Code: "SANDBOX_COMPILE", Err: err}
	}
	defer compiled.Close(ctx)

	exitCode := 0
	mod, runErr := h.runtime.InstantiateModule(ctx, compiled, modCfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	if runErr != nil {
		if ctx.Err() != nil {
			// The deadline or the caller's cancellation closed the module.
			return Outcome{}, &InvocationError{Code: "SANDBOX_RUN", Err: ctx.Err()}
		}
		if exitErr, ok := asExitError(runErr); ok {
			exitCode = int(exitErr.ExitCode())
		} else {
			return Outcome{}, &InvocationError{Code: "SANDBOX_RUN", Err: runErr}
		}
	}

	after, err := digestAll(opts.WatchDigests)
	if err != nil {
		return Outcome{}, &InvocationError{Code: "SANDBOX_WATCH", Err: err}
	}

	return Outcome{
		ExitCode:  exitCode,
		Stdout:    withMarker(stdout),
		Stderr:    withMarker(stderr),
		Truncated: stdout.truncated || stderr.truncated,
		Mutated:   changedPaths(opts.WatchDigests, before, after),
		WallTime:  time.Since(start),
	}, nil
}

func withMarker(c *cappedBuffer) []byte {
	if !c.truncated {
		return c.Bytes()
	}
	return append(c.Bytes(), []byte(truncationMarker)...)
}

func asExitError(err error) (*sys.ExitError, bool) {
	exitErr, ok := err.(*sys.ExitError)
	return exitErr, ok
}

func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return digest.Digest{}, err
	}
	defer f.Close()
	return digest.OfReader(f)
}

func digestAll(paths []string) (map[string]digest.Digest, error) {
	out := make(map[string]digest.Digest, len(paths))
	for _, p := range paths {
		d, err := digestFile(p)
		if err != nil {
			continue // file may not exist yet; treated as zero digest
		}
		out[p] = d
	}
	return out, nil
}

func changedPaths(paths []string, before, after map[string]digest.Digest) []string {
	var out []string
	for _, p := range paths {
		if before[p] != after[p] {
			out = append(out, p)
		}
	}
	return out
}

// cappedBuffer is an io.Writer that stops keeping bytes past limit and
// records via truncated that some were dropped.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte { return c.buf.Bytes() }
