package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/pkgresolve/internal/cache"
	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/fingerprint"
	"github.com/vk/pkgresolve/internal/graph"
	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/results"
	"github.com/vk/pkgresolve/internal/target"
	)

// fingerprintDirLen is how many fingerprint characters name a results dir.
const fingerprintDirLen = 16

// plan is the virtualized pass's view of one eligible target.
type plan struct {
	target      *target.Target
	strategy    registry.Strategy
	fingerprint fingerprint.Fingerprint
	labeled     string
	stored      cache.Entry
	valid       bool
}

func (e *Engine) runVirtualized(ctx context.Context, set *targetSet, paths *results.Paths, rec *recorder) error {
	ctx = ctxlog.With(ctx, "mode", results.Virtualized.String())
	logger := ctxlog.FromContext(ctx)

	g, err := graph.FromTargets(set.ordered)
	if err != nil {
		return err
	}
	if err := g.DetectCycles(); err != nil {
		return fmt.Errorf("validating dependency graph: %w", err)
	}

	plans, err := e.plan(ctx, set, g, paths)
	if err != nil {
		return err
	}

	var changed []string
	for id, p := range plans {
		if !p.valid {
			changed = append(changed, id)
		}
	}
	invalid := g.TransitiveDependents(changed)
	for id, p := range plans {
		if _, ok := invalid[id]; ok && p.valid {
			logger.Debug("Invalidating dependent of a changed target.", "target", id)
			p.valid = false
		}
	}
	logger.Info("Computed invalidation.", "eligible", len(plans), "invalid", countInvalid(plans))

	return newPool(e.parallelism).run(ctx, g, func(ctx context.Context, id string) error {
		p, ok := plans[id]
		if !ok {
			return nil
		}
		if p.valid {
			paths.Resolved(p.target.Address, p.stored.ResultsDir)
			e.metrics.observeCached()
			rec.add(Outcome{
				Address: p.target.Address, Kind: results.Virtualized, Strategy: p.strategy.Name(),
				Fingerprint: p.fingerprint, Dir: p.stored.ResultsDir, Cached: true,
			})
			logger.Debug("Reusing valid results.", "target", id, "dir", p.stored.ResultsDir)
			return nil
		}
		return e.resolveVirtualized(ctx, set, p, paths, rec)
	})
}

// plan fingerprints every eligible target in parallel, chains each
// fingerprint with those of its dependencies in dependency order and checks
// the result against the stored entry.
func (e *Engine) plan(ctx context.Context, set *targetSet, g *graph.Graph, paths *results.Paths) (map[string]*plan, error) {
	fp := &fingerprint.Strategy{
		BuildRoot:  e.buildRoot,
		WatchFiles: e.watchFiles,
		Paths:      paths,
		Eligible:   e.registry.CanResolve,
	}

	eligible := set.filter(e.registry.CanResolve)
	own := make([]fingerprint.Fingerprint, len(eligible))
	errs := make([]error, len(eligible))

	sem := make(chan struct{}, e.parallelism)
	var wg sync.WaitGroup
	for i, t := range eligible {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			own[i], _, errs[i] = fp.Compute(t)
		}()
	}
	wg.Wait()

	out := make(map[string]*plan, len(eligible))
	for i, t := range eligible {
		if errs[i] != nil {
			return nil, errs[i]
		}
		strategy, _ := e.registry.Lookup(t)
		out[t.Address.Spec()] = &plan{target: t, strategy: strategy, fingerprint: own[i]}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("validating dependency graph: %w", err)
	}
	keys := make(map[string]fingerprint.Fingerprint, len(order))
	for _, id := range order {
		t := set.lookup(id)
		var deps []fingerprint.Dependency
		for _, dep := range set.dependencies(t) {
			deps = append(deps, fingerprint.Dependency{Address: dep.Address, Fingerprint: keys[dep.Address.Spec()]})
		}
		var self fingerprint.Fingerprint
		if p, ok := out[id]; ok {
			self = p.fingerprint
		}
		keys[id] = fingerprint.Chain(self, deps...)
	}

	for id, p := range out {
		p.fingerprint = keys[id]
		p.labeled = p.fingerprint.Labeled(p.strategy.Name())
		if err := e.checkStored(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkStored marks p valid when its stored entry was produced from the same
// labeled fingerprint and the results directory still exists.
func (e *Engine) checkStored(ctx context.Context, p *plan) error {
	stored, ok, err := e.store.Get(ctx, p.target.Address)
	if err != nil {
		return fmt.Errorf("reading cache entry for %s: %w", p.target.Address, err)
	}
	if ok && stored.Fingerprint == p.labeled && dirExists(stored.ResultsDir) {
		p.stored = stored
		p.valid = true
	}
	return nil
}

func (e *Engine) resolveVirtualized(ctx context.Context, set *targetSet, p *plan, paths *results.Paths, rec *recorder) error {
	logger := ctxlog.FromContext(ctx)
	addr := p.target.Address
	dir := filepath.Join(e.workDir, p.strategy.Name(), addr.Slug(), p.fingerprint.Short(fingerprintDirLen))

	unlock := e.locks.lock(addr)
	defer unlock()

	// Forget the entry before its directory is cleared.
	if err := e.store.Delete(ctx, addr); err != nil {
		return fmt.Errorf("forgetting results for %s: %w", addr, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing results directory for %s: %w", addr, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating results directory for %s: %w", addr, err)
	}

	logger.Info("Resolving target.", "target", addr, "strategy", p.strategy.Name(), "dir", dir)
	start := time.Now()
	err := p.strategy.ResolveTarget(ctx, &registry.Request{
		Target:       p.target,
		ResultsDir:   dir,
		BuildRoot:    e.buildRoot,
		Paths:        paths,
		Dependencies: set.dependencies(p.target),
		Mode:         registry.Mode{FrozenLockfile: true},
	})
	if err != nil {
		e.metrics.observeFailure(results.Virtualized)
		logger.Error("Target resolution failed.", "target", addr, "error", err)
		return &StrategyError{Target: addr, Strategy: p.strategy.Name(), Err: err}
	}
	e.metrics.observeResolved(results.Virtualized, time.Since(start))

	paths.Resolved(addr, dir)
	entry := cache.Entry{Fingerprint: p.labeled, Strategy: p.strategy.Name(), ResultsDir: dir}
	if err := e.store.Put(ctx, addr, entry); err != nil {
		return fmt.Errorf("recording results for %s: %w", addr, err)
	}
	rec.add(Outcome{
		Address: addr, Kind: results.Virtualized, Strategy: p.strategy.Name(),
		Fingerprint: p.fingerprint, Dir: dir,
	})
	return nil
}

func countInvalid(plans map[string]*plan) int {
	n := 0
	for _, p := range plans {
		if !p.valid {
			n++
		}
	}
	return n
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
