package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nit/internal/config"
	"nit/internal/fetch"
	"nit/internal/metadata"
	"nit/internal/predicate"
	"nit/internal/store"
)

// ResolvedLinter is one config.Linter after its module has been acquired
// (component A/B) and its contract decoded (component C) and merged with
// any declaration-level overrides.
type ResolvedLinter struct {
	Name        string
	ModulePath  string
	ModuleBytes []byte
	Contract    metadata.Contract
	Machine     *Machine

	// Err is set, and Machine left in StateFailed, when acquisition or
	// contract decoding failed. A failed linter contributes a
	// report.Outcome{Failed: true} and never reaches dispatch.
	Err error
}

// Resolver ties the content store and fetcher together to turn a single
// config.Linter declaration into a ResolvedLinter.
type Resolver struct {
	Store  *store.Store
	Fetch  *fetch.Fetcher
	Root   string // repository root, for resolving local module paths
}

// Resolve acquires l's module and decodes its contract, applying any
// override_* fields from the declaration. It never returns an error
// itself — acquisition and decode failures are reported on the returned
// ResolvedLinter so a bad linter never aborts the rest of the run.
func (r *Resolver) Resolve(ctx context.Context, l config.Linter) *ResolvedLinter {
	rl := &ResolvedLinter{Name: l.Name, Machine: NewMachine()}

	if err := rl.Machine.Transition(StateAcquiring); err != nil {
		rl.fail(err)
		return rl
	}

	modulePath, err := r.acquire(ctx, l)
	if err != nil {
		rl.fail(fmt.Errorf("DISPATCH_ACQUIRE: linter %q: %w", l.Name, err))
		return rl
	}
	rl.ModulePath = modulePath

	moduleBytes, err := r.read(l, modulePath)
	if err != nil {
		rl.fail(fmt.Errorf("DISPATCH_ACQUIRE: linter %q: %w", l.Name, err))
		return rl
	}

	contract, err := metadata.Read(moduleBytes)
	if err != nil {
		rl.fail(fmt.Errorf("DISPATCH_CONTRACT: linter %q: %w", l.Name, err))
		return rl
	}
	contract = applyOverrides(contract, l)
	if err := contract.Validate(); err != nil {
		rl.fail(fmt.Errorf("DISPATCH_CONTRACT: linter %q: %w", l.Name, err))
		return rl
	}
	rl.Contract = contract
	rl.ModuleBytes = moduleBytes

	if err := rl.Machine.Transition(StateReady); err != nil {
		rl.fail(err)
		return rl
	}
	return rl
}

func (rl *ResolvedLinter) fail(err error) {
	rl.Err = err
	// Best effort: the machine may already be in a state that makes this
	// an illegal move (e.g. acquisition failed before Acquiring was
	// entered), in which case the error is already informative enough.
	_ = rl.Machine.Transition(StateFailed)
}

// read returns modulePath's bytes. For a remote module this re-verifies
// the store entry's digest via Store.OpenModule rather than trusting the
// path alone, catching on-disk corruption between publish and use; a
// local module has no store-tracked digest to re-check against, so it's
// read directly.
func (r *Resolver) read(l config.Linter, modulePath string) ([]byte, error) {
	if l.Location.Kind == config.LocationRemote {
		rc, err := r.Store.OpenModule(l.Location.Digest)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return os.ReadFile(modulePath)
}

func (r *Resolver) acquire(ctx context.Context, l config.Linter) (string, error) {
	switch l.Location.Kind {
	case config.LocationRemote:
		return r.Fetch.Fetch(ctx, l.Location.URL, l.Location.Digest)
	case config.LocationLocal:
		p := l.Location.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.Root, p)
		}
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
		return p, nil
	default:
		return "", fmt.Errorf("unknown location kind %d", l.Location.Kind)
	}
}

// applyOverrides merges a config.Linter's declaration-level overrides
// into the module-declared contract. OverrideArgvTemplate and
// OverrideMode replace the declared value outright; OverrideInclude and
// OverrideExclude don't touch Contract.Filter itself (computeFilter
// layers them on separately) so Read/Write round trip the module's own
// declared filter unchanged.
func applyOverrides(c metadata.Contract, l config.Linter) metadata.Contract {
	if len(l.OverrideArgvTemplate) > 0 {
		c.ArgvTemplate = l.OverrideArgvTemplate
	}
	if l.OverrideMode != nil {
		c.InvocationMode = *l.OverrideMode
	}
	return c
}

// computeFilter builds the filter a linter's files are actually matched
// against: the module's own declared filter, ANDed with the run's
// top-level include (and the linter's own override_include, if any),
// with the run's top-level exclude (and the linter's own
// override_exclude) subtracted. This is an nit-specific layering
// decision beyond what spec.md's override wording states directly.
func computeFilter(contract metadata.Contract, cfg config.Config, l config.Linter) predicate.Expr {
	include := cfg.Include
	if l.OverrideInclude != nil {
		include = predicate.And(cfg.Include, *l.OverrideInclude)
	}
	exclude := cfg.Exclude
	if l.OverrideExclude != nil {
		exclude = predicate.Or(cfg.Exclude, *l.OverrideExclude)
	}
	return predicate.Effective(contract.Filter, include, exclude)
}
