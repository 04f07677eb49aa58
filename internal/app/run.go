package app

import (
	"context"
	"fmt"
	"path"

	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/engine"
	"github.com/vk/pkgresolve/internal/results"
	"github.com/vk/pkgresolve/internal/specs"
	"github.com/vk/pkgresolve/internal/target"
	"github.com/vk/pkgresolve/internal/watch"
)

// watchSet is what a run depends on: the watched files of every eligible
// target and the descriptor globs of the specs.
type watchSet struct {
	files []string
	globs []string
}

// Run resolves the configured specs once and, in watch mode, again after
// every relevant change until ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.MetricsPort > 0 {
		a.startServer(ctx)
		defer func() { _ = a.closeServer(ctx) }()
	}

	set, err := a.resolve(ctx)
	if !a.config.Watch {
		a.logger.Debug("App.Run method finished.")
		return err
	}
	if err != nil {
		if set == nil {
			return err
		}
		a.logger.Error("Resolution failed, waiting for changes.", "error", err)
	}
	return a.watch(ctx, set)
}

// resolve performs a single load and engine run. The returned watchSet is
// non-nil once the specs have parsed, even when a later step fails.
func (a *App) resolve(ctx context.Context) (*watchSet, error) {
	logger := ctxlog.FromContext(ctx)

	addressSpecs, err := specs.Parse(a.config.Specs, a.config.Tags, a.config.Excludes)
	if err != nil {
		return nil, fmt.Errorf("invalid target specs: %w", err)
	}
	set := &watchSet{globs: addressSpecs.GlobPatterns(a.config.BuildFiles)}

	idx, err := a.loader.Load(ctx)
	if err != nil {
		return set, fmt.Errorf("failed to load build files: %w", err)
	}
	logger.Debug("Build files loaded.", "families", len(idx.Families()), "targets", idx.Len())

	roots, err := specs.Targets(addressSpecs, idx)
	if err != nil {
		return set, fmt.Errorf("failed to resolve target specs: %w", err)
	}
	closure, err := idx.Closure(roots)
	if err != nil {
		return set, fmt.Errorf("failed to collect dependencies: %w", err)
	}
	set.files = a.watchedFiles(closure)

	res, err := a.engine.Run(ctx, closure, a.config.Modes())
	if err != nil {
		return set, fmt.Errorf("resolution failed: %w", err)
	}
	return set, a.printResults(res)
}

func (a *App) watchedFiles(targets []*target.Target) []string {
	var out []string
	for _, t := range targets {
		if !a.registry.CanResolve(t) {
			continue
		}
		for _, f := range a.config.WatchFiles {
			out = append(out, path.Join(t.SourceDir(), f))
		}
	}
	return out
}

// printResults writes one `address<TAB>path` line per published target,
// grouped under a `# <mode>` header for each pass that ran.
func (a *App) printResults(res *engine.Results) error {
	modes := a.config.Modes()
	sections := []struct {
		enabled bool
		paths   *results.Paths
	}{
		{modes.Virtualized, res.Virtualized},
		{modes.Local, res.Local},
	}
	for _, s := range sections {
		if !s.enabled {
			continue
		}
		if _, err := fmt.Fprintf(a.outW, "# %s\n", s.paths.Kind()); err != nil {
			return err
		}
		for _, e := range s.paths.Snapshot() {
			if _, err := fmt.Fprintf(a.outW, "%s\t%s\n", e.Address, e.Dir); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *App) watch(ctx context.Context, set *watchSet) error {
	logger := ctxlog.FromContext(ctx)

	excludes := []string{"**/node_modules/**", "**/.git/**"}
	if ex, ok := a.config.workDirExclude(); ok {
		excludes = append(excludes, ex)
	}
	w, err := watch.New(a.config.BuildRoot, a.config.WatchDebounce, excludes)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Set(ctx, set.files, set.globs); err != nil {
		return err
	}
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		logger.Info("Re-running resolution.", "changed", len(changed))
		next, err := a.resolve(ctx)
		if next != nil {
			if setErr := w.Set(ctx, next.files, next.globs); setErr != nil {
				return setErr
			}
		}
		return err
	})
}
