// Package app wires every component package into the operations the
// command-line surface needs, the same role the teacher's internal/app
// package plays for its own CLI: a single Service constructed once per
// invocation, behind a newSvc closure, with every subcommand a thin
// wrapper around one Service method.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"nit/internal/config"
	"nit/internal/dispatch"
	"nit/internal/events"
	"nit/internal/fetch"
	"nit/internal/fileset"
	"nit/internal/fsutil"
	"nit/internal/gitutil"
	"nit/internal/metadata"
	"nit/internal/report"
	"nit/internal/sandbox"
	"nit/internal/store"
)

// Options configures a Service. Every field is optional; zero values
// resolve against the working directory and the platform cache dir, the
// same discovery chain `nit` would use with no flags at all.
type Options struct {
	// ConfigPath, if set, is used verbatim instead of probing
	// config.CandidateNames in Root.
	ConfigPath string
	// Root is the repository root every relative path (config, local
	// linter modules, file enumeration) is resolved against. Defaults to
	// the git top level of the working directory, or the working
	// directory itself outside a git repo.
	Root string
	// CacheDir overrides the content store location. Defaults to
	// store.DefaultRoot().
	CacheDir string
}

// Service bundles every lower-level component a CLI command needs.
type Service struct {
	root       string
	configPath string

	store   *store.Store
	fetcher *fetch.Fetcher
	host    sandbox.Host
	events  events.Sink
}

// New resolves Options and builds a ready-to-use Service.
func New(opts Options) (*Service, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("APP_INIT: %w", err)
		}
		root = wd
		if top, err := gitutil.TopLevel(context.Background(), wd); err == nil && top != "" {
			root = top
		}
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		d, err := store.DefaultRoot()
		if err != nil {
			return nil, fmt.Errorf("APP_INIT: %w", err)
		}
		cacheDir = d
	}

	st, err := store.Open(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("APP_INIT: %w", err)
	}

	compiledDir := filepath.Join(cacheDir, "compiled")
	if err := os.MkdirAll(compiledDir, 0o755); err != nil {
		return nil, fmt.Errorf("APP_INIT: %w", err)
	}
	host, err := sandbox.NewHost(context.Background(), compiledDir)
	if err != nil {
		return nil, fmt.Errorf("APP_INIT: %w", err)
	}

	return &Service{
		root:       root,
		configPath: opts.ConfigPath,
		store:      st,
		fetcher:    fetch.New(st, nil),
		host:       host,
		events:     events.New(filepath.Join(cacheDir, "events.jsonl")),
	}, nil
}

// Close releases the sandbox runtime's resources. Callers should defer
// it once a Service is no longer needed.
func (s *Service) Close(ctx context.Context) error {
	return s.host.Close(ctx)
}

// Root returns the repository root the Service resolves paths against.
func (s *Service) Root() string { return s.root }

func (s *Service) resolveConfigPath() (string, error) {
	if s.configPath != "" {
		return s.configPath, nil
	}
	return config.Discover(s.root)
}

func (s *Service) loadConfig() (config.Config, error) {
	path, err := s.resolveConfigPath()
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// RunOptions selects which files a Run pass considers.
type RunOptions struct {
	// Files, if non-empty, is used verbatim instead of any enumeration.
	Files []string
	// All walks the entire working tree instead of the default (files
	// currently staged for commit — the pre-commit-hook shape).
	All bool
	// Against, if non-empty, lints only files that differ against this
	// ref instead of the staged-files default — the pre-push-hook shape,
	// where a push is checked against what the remote already has.
	Against string
}

// Run loads the config, enumerates candidate files per opts, and
// dispatches every linter, returning the aggregated report.
func (s *Service) Run(ctx context.Context, opts RunOptions) (report.Report, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return report.Report{}, err
	}

	candidates, err := s.enumerate(ctx, opts)
	if err != nil {
		return report.Report{}, err
	}
	files := make([]dispatch.File, len(candidates))
	for i, c := range candidates {
		files[i] = c
	}

	d := dispatch.New(s.store, s.fetcher, s.host, s.events, s.root)
	return d.Run(ctx, cfg, files)
}

func (s *Service) enumerate(ctx context.Context, opts RunOptions) ([]*fileset.CandidateFile, error) {
	switch {
	case len(opts.Files) > 0:
		return fileset.FromPaths(s.root, opts.Files), nil
	case opts.All:
		return fileset.Enumerate(ctx, s.root, fileset.ModeAll, "")
	case opts.Against != "":
		return fileset.Enumerate(ctx, s.root, fileset.ModeChangedAgainst, opts.Against)
	default:
		return fileset.Enumerate(ctx, s.root, fileset.ModeStaged, "")
	}
}

// Fetch warms the content store with every remote linter's module,
// without running anything, and returns how many were newly downloaded.
func (s *Service) Fetch(ctx context.Context) (int, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return 0, err
	}
	fetched := 0
	for _, l := range cfg.Linters {
		if l.Location.Kind != config.LocationRemote {
			continue
		}
		if s.store.Has(l.Location.Digest) {
			continue
		}
		if _, err := s.fetcher.Fetch(ctx, l.Location.URL, l.Location.Digest); err != nil {
			return fetched, fmt.Errorf("APP_FETCH: linter %q: %w", l.Name, err)
		}
		fetched++
	}
	return fetched, nil
}

// Clean empties and recreates the content store.
func (s *Service) Clean() error {
	root := s.store.Root()
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("APP_CLEAN: %w", err)
	}
	st, err := store.Open(root)
	if err != nil {
		return fmt.Errorf("APP_CLEAN: %w", err)
	}
	s.store = st
	s.fetcher = fetch.New(st, nil)
	return nil
}

// ValidateConfig loads and validates the config without dispatching
// anything, returning the resolved config path alongside any error.
func (s *Service) ValidateConfig() (string, error) {
	path, err := s.resolveConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := config.Load(path); err != nil {
		return path, err
	}
	return path, nil
}

// SampleConfig returns the embedded example configuration.
func (s *Service) SampleConfig() string {
	return config.Sample
}

// ShowMetadata decodes the invocation contract embedded in a module file.
func (s *Service) ShowMetadata(modulePath string) (metadata.Contract, error) {
	b, err := os.ReadFile(modulePath)
	if err != nil {
		return metadata.Contract{}, fmt.Errorf("APP_METADATA: %w", err)
	}
	return metadata.Read(b)
}

// SetMetadata decodes payload as a Contract and embeds it into the
// module file at modulePath, overwriting any contract already present.
// payload is hand-authored like a config file, so it is run through the
// same permissive JSON(C) standardization before decoding.
func (s *Service) SetMetadata(modulePath string, payload []byte) error {
	b, err := os.ReadFile(modulePath)
	if err != nil {
		return fmt.Errorf("APP_METADATA: %w", err)
	}
	standardized, err := hujson.Standardize(payload)
	if err != nil {
		return fmt.Errorf("APP_METADATA: %w", err)
	}
	c, err := metadata.Decode(standardized)
	if err != nil {
		return fmt.Errorf("APP_METADATA: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	out, err := metadata.Write(b, c)
	if err != nil {
		return fmt.Errorf("APP_METADATA: %w", err)
	}
	return fsutil.AtomicWrite(modulePath, out, 0o644)
}

const hookShebang = "#!/bin/sh\n# installed by nit\nexec nit %s \"$@\"\n"

// InstallHook writes a thin shell script invoking `nit <hookType>` into
// the repository's git hooks directory, and returns the path written.
func (s *Service) InstallHook(ctx context.Context, hookType string) (string, error) {
	if hookType != "pre-commit" && hookType != "pre-push" {
		return "", fmt.Errorf("APP_HOOK: unsupported hook type %q", hookType)
	}
	path, err := s.hookPath(ctx, hookType)
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf(hookShebang, hookType)
	if err := fsutil.AtomicWrite(path, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("APP_HOOK: %w", err)
	}
	return path, nil
}

// UninstallHook removes a previously installed hook script, if present.
func (s *Service) UninstallHook(ctx context.Context, hookType string) error {
	path, err := s.hookPath(ctx, hookType)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("APP_HOOK: %w", err)
	}
	return nil
}

func (s *Service) hookPath(ctx context.Context, hookType string) (string, error) {
	dir, err := gitutil.HooksDir(ctx, s.root)
	if err != nil {
		return "", fmt.Errorf("APP_HOOK: %w", err)
	}
	return filepath.Join(s.root, dir, hookType), nil
}
