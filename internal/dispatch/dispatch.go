// Package dispatch implements the orchestrator (component G): it
// resolves every declared linter's module, matches the run's candidate
// file set against each linter's effective filter, partitions matches
// into invocation batches, and runs those batches under the sandbox host
// with bounded concurrency, collecting a report.Report at the end.
//
// Grounded on the teacher's worker-pool shape (bounded goroutines over a
// work list, errgroup.Group for first-error propagation) generalized
// from a single collection loop to the two-level linter/batch fan-out
// spec.md's concurrency model calls for, using golang.org/x/sync/semaphore
// for the global concurrency bound the same module already used for
// singleflight in internal/fetch. Results are collected through a
// buffered channel rather than a mutex-guarded slice: each started
// invocation sends exactly one outcome once its host call returns, and a
// host call that fails (including one torn down after the run was
// canceled and its grace period, see cancel.go, expired) sends only a
// bare Failed outcome, so none of its partial output reaches the report.
package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"nit/internal/config"
	"nit/internal/events"
	"nit/internal/fetch"
	"nit/internal/metadata"
	"nit/internal/predicate"
	"nit/internal/report"
	"nit/internal/sandbox"
	"nit/internal/store"
)

// File is the subset of fileset.CandidateFile the dispatcher needs; kept
// narrow so tests can supply fakes without depending on internal/fileset.
type File interface {
	predicate.File
	AbsPath() string
}

// Dispatcher runs a full lint pass: resolve, filter, batch, invoke, report.
type Dispatcher struct {
	Store  *store.Store
	Fetch  *fetch.Fetcher
	Host   sandbox.Host
	Events events.Sink
	Root   string

	// GracePeriod bounds how long an in-flight invocation gets to return
	// on its own after the run's context is canceled, before its own
	// context is forcibly canceled too. Zero means DefaultGracePeriod.
	GracePeriod time.Duration

	fixLocks FixLocks
}

// New builds a Dispatcher from its component dependencies.
func New(st *store.Store, f *fetch.Fetcher, host sandbox.Host, sink events.Sink, root string) *Dispatcher {
	return &Dispatcher{Store: st, Fetch: f, Host: host, Events: sink, Root: root}
}

func (d *Dispatcher) gracePeriod() time.Duration {
	if d.GracePeriod > 0 {
		return d.GracePeriod
	}
	return DefaultGracePeriod
}

// invocationJob is one batch ready to dispatch against an already
// resolved, already filtered linter.
type invocationJob struct {
	rl     *ResolvedLinter
	batch  []string
	serial *semaphore.Weighted
}

// Run resolves every linter in cfg, matches files against each one, and
// dispatches every resulting batch, returning the aggregated report.
func (d *Dispatcher) Run(ctx context.Context, cfg config.Config, files []File) (report.Report, error) {
	resolver := &Resolver{Store: d.Store, Fetch: d.Fetch, Root: d.Root}

	resolved := make([]*ResolvedLinter, len(cfg.Linters))
	{
		g, gctx := errgroup.WithContext(ctx)
		for i, l := range cfg.Linters {
			i, l := i, l
			g.Go(func() error {
				resolved[i] = resolver.Resolve(gctx, l)
				return nil
			})
		}
		_ = g.Wait() // Resolve never returns an error; failures are per-linter.
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	global := semaphore.NewWeighted(int64(concurrency))

	var outcomes []report.Outcome
	var jobs []invocationJob

	for i, rl := range resolved {
		l := cfg.Linters[i]

		if rl.Err != nil {
			outcomes = append(outcomes, report.Outcome{Linter: rl.Name, Failed: true})
			d.logEvent(events.Event{Linter: rl.Name, Phase: "acquire", Status: "failed", Message: rl.Err.Error()})
			continue
		}

		matched := matchFiles(rl.Contract, cfg, l, files)
		if err := rl.Machine.Transition(StateFiltered); err != nil {
			outcomes = append(outcomes, report.Outcome{Linter: rl.Name, Failed: true})
			continue
		}
		if len(matched) == 0 {
			_ = rl.Machine.Transition(StateDone)
			continue
		}

		batches := Batches(rl.Contract, matched)
		if err := rl.Machine.Transition(StateDispatching); err != nil {
			outcomes = append(outcomes, report.Outcome{Linter: rl.Name, Failed: true})
			continue
		}

		serial := semaphoreIf(rl.Contract.RequireSerial)
		for _, batch := range batches {
			jobs = append(jobs, invocationJob{rl: rl, batch: batch, serial: serial})
		}
	}

	// Every started job sends exactly one outcome on this channel once
	// its host call returns. A job whose host call fails, including one
	// torn down after cancellation outlasted its grace period, sends a
	// bare Failed outcome carrying none of its partial output; jobs never
	// started because the run was canceled send nothing.
	results := make(chan report.Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)

	for _, j := range jobs {
		j := j
		if cfg.FailFast {
			select {
			case <-gctx.Done():
				continue
			default:
			}
		}
		if err := global.Acquire(gctx, 1); err != nil {
			continue
		}
		if j.serial != nil {
			if err := j.serial.Acquire(gctx, 1); err != nil {
				global.Release(1)
				continue
			}
		}

		g.Go(func() error {
			defer global.Release(1)
			if j.serial != nil {
				defer j.serial.Release(1)
			}
			invokeCtx, stop := withGrace(gctx, d.gracePeriod())
			defer stop()

			outcome, err := d.invoke(invokeCtx, j.rl, j.batch)
			results <- outcome
			if err != nil && cfg.FailFast {
				return err
			}
			return nil
		})
	}

	waitErr := g.Wait()
	close(results)
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}

	for _, rl := range resolved {
		if rl.Machine.State() == StateDispatching {
			_ = rl.Machine.Transition(StateDone)
		}
	}

	rep := report.Aggregate(outcomes)
	if waitErr != nil {
		return rep, fmt.Errorf("DISPATCH_RUN: %w", waitErr)
	}
	return rep, nil
}

func (d *Dispatcher) invoke(ctx context.Context, rl *ResolvedLinter, batch []string) (report.Outcome, error) {
	argv, err := metadata.ExpandArgv(rl.Contract, batch, "/")
	if err != nil {
		d.logEvent(events.Event{Linter: rl.Name, Phase: "invoke", Status: "failed", Message: err.Error()})
		return report.Outcome{Linter: rl.Name, Failed: true}, nil
	}

	var unlock func()
	var watch []string
	if rl.Contract.Fixes {
		watch = make([]string, len(batch))
		for i, rel := range batch {
			watch[i] = filepath.Join(d.Root, rel)
		}
		unlock = d.fixLocks.Acquire(watch)
		defer unlock()
	}

	outcome, err := d.Host.Instantiate(ctx, rl.ModuleBytes, sandbox.InstantiateOptions{
		PreopenDir:   d.Root,
		ReadWrite:    rl.Contract.Fixes,
		Argv:         argv,
		Env:          invocationEnv(rl.Contract.Env),
		WatchDigests: watch,
	})
	if err != nil {
		d.logEvent(events.Event{Linter: rl.Name, Phase: "invoke", Status: "failed", Message: err.Error()})
		return report.Outcome{Linter: rl.Name, Failed: true}, err
	}

	d.logEvent(events.Event{
		Linter:   rl.Name,
		Phase:    "invoke",
		Status:   "done",
		ExitCode: outcome.ExitCode,
		Mutated:  outcome.Mutated,
	})
	return report.Outcome{
		Linter:    rl.Name,
		ExitCode:  outcome.ExitCode,
		Stderr:    string(outcome.Stderr),
		Truncated: outcome.Truncated,
		Mutated:   outcome.Mutated,
	}, nil
}

// invocationEnv returns the contract's declared env plus the minimal
// locale variable every invocation gets regardless of contract: a
// module that does not inherit the host's locale would otherwise see
// no LANG/LC_* at all, which trips up linters that branch on locale for
// things like case folding. The contract's own LANG, if any, wins.
func invocationEnv(contractEnv map[string]string) map[string]string {
	env := make(map[string]string, len(contractEnv)+1)
	env["LANG"] = "C.UTF-8"
	for k, v := range contractEnv {
		env[k] = v
	}
	return env
}

func (d *Dispatcher) logEvent(ev events.Event) {
	if d.Events == nil {
		return
	}
	_ = d.Events.Log(ev)
}

func matchFiles(contract metadata.Contract, cfg config.Config, l config.Linter, files []File) []string {
	filter := computeFilter(contract, cfg, l)
	var out []string
	for _, f := range files {
		if predicate.Eval(filter, f) {
			out = append(out, f.Path())
		}
	}
	sort.Strings(out)
	return out
}

func semaphoreIf(serial bool) *semaphore.Weighted {
	if !serial {
		return nil
	}
	return semaphore.NewWeighted(1)
}
