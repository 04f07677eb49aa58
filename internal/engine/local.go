package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/graph"
	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/results"
)

// localMode is the flag set for resolving into source directories: the
// package manager may update lock files and installs optional packages.
var localMode = registry.Mode{ResolveLocally: true, InstallOptional: true, FrozenLockfile: false}

// runLocal resolves every eligible target into its source directory, one at
// a time, dependencies first. Nothing is skipped.
func (e *Engine) runLocal(ctx context.Context, set *targetSet, paths *results.Paths, rec *recorder) error {
	ctx = ctxlog.With(ctx, "mode", results.Local.String())
	logger := ctxlog.FromContext(ctx)

	g, err := graph.FromTargets(set.ordered)
	if err != nil {
		return err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := set.lookup(id)
		if t == nil || !e.registry.CanResolve(t) {
			continue
		}
		strategy, _ := e.registry.Lookup(t)
		dir := filepath.Join(e.buildRoot, filepath.FromSlash(t.SourceDir()))

		logger.Info("Resolving target in place.", "target", t.Address, "strategy", strategy.Name(), "dir", dir)
		start := time.Now()
		unlock := e.locks.lock(t.Address)
		err := strategy.ResolveTarget(ctx, &registry.Request{
			Target:       t,
			ResultsDir:   dir,
			BuildRoot:    e.buildRoot,
			Paths:        paths,
			Dependencies: set.dependencies(t),
			Mode:         localMode,
		})
		unlock()
		if err != nil {
			e.metrics.observeFailure(results.Local)
			logger.Error("Target resolution failed.", "target", t.Address, "error", err)
			return &StrategyError{Target: t.Address, Strategy: strategy.Name(), Err: err}
		}
		e.metrics.observeResolved(results.Local, time.Since(start))

		paths.Resolved(t.Address, dir)
		rec.add(Outcome{Address: t.Address, Kind: results.Local, Strategy: strategy.Name(), Dir: dir})
	}
	return nil
}
