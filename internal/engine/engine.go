package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/cache"
	"github.com/vk/pkgresolve/internal/cache/memory"
	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/fingerprint"
	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/results"
	"github.com/vk/pkgresolve/internal/target"
)

// DefaultWatchFiles are fingerprinted when Options.WatchFiles is empty.
var DefaultWatchFiles = []string{"package.json", "yarn.lock"}

// Options configure an Engine.
type Options struct {
	Registry *registry.Registry
	// Store persists virtualized results between runs. Defaults to an
	// in-memory store.
	Store cache.Store
	// BuildRoot is the directory target source directories are relative to.
	BuildRoot string
	// WorkDir holds virtualized result directories.
	WorkDir    string
	WatchFiles []string
	// Parallelism bounds concurrent strategy calls in the virtualized pass.
	// Zero means runtime.NumCPU().
	Parallelism int
	Metrics     *Metrics
}

// Modes selects which passes a run performs.
type Modes struct {
	Virtualized bool
	Local       bool
}

// Outcome describes what happened to one target in one pass.
type Outcome struct {
	Address     address.Address
	Kind        results.Kind
	Strategy    string
	Fingerprint fingerprint.Fingerprint
	Dir         string
	// Cached is set when previous virtualized results were reused.
	Cached bool
}

// Results is the product of a successful run.
type Results struct {
	RunID       string
	Virtualized *results.Paths
	Local       *results.Paths
	// Outcomes are sorted by pass, then address.
	Outcomes []Outcome
}

// Resolved returns, sorted, the targets whose strategy ran in the given pass.
func (r *Results) Resolved(kind results.Kind) []address.Address {
	return r.filter(func(o Outcome) bool { return o.Kind == kind && !o.Cached })
}

// Cached returns, sorted, the virtualized targets whose results were reused.
func (r *Results) Cached() []address.Address {
	return r.filter(func(o Outcome) bool { return o.Cached })
}

func (r *Results) filter(keep func(Outcome) bool) []address.Address {
	var out []address.Address
	for _, o := range r.Outcomes {
		if keep(o) {
			out = append(out, o.Address)
		}
	}
	return out
}

// Engine performs incremental resolution runs. One Engine may serve
// concurrent runs; resolutions of the same target never overlap.
type Engine struct {
	registry    *registry.Registry
	store       cache.Store
	buildRoot   string
	workDir     string
	watchFiles  []string
	parallelism int
	metrics     *Metrics
	locks       *targetLocks
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("engine: a work directory is required")
	}
	e := &Engine{
		registry:    opts.Registry,
		store:       opts.Store,
		buildRoot:   opts.BuildRoot,
		workDir:     opts.WorkDir,
		watchFiles:  append([]string(nil), opts.WatchFiles...),
		parallelism: opts.Parallelism,
		metrics:     opts.Metrics,
		locks:       newTargetLocks(),
	}
	if e.store == nil {
		e.store = memory.New()
	}
	if len(e.watchFiles) == 0 {
		e.watchFiles = append([]string(nil), DefaultWatchFiles...)
	}
	if e.parallelism <= 0 {
		e.parallelism = runtime.NumCPU()
	}
	return e, nil
}

// Run resolves targets. targets must be closed under dependencies; a
// dependency that is not among them is ignored. Either pass failing fails
// the whole run and no Results are returned.
func (e *Engine) Run(ctx context.Context, targets []*target.Target, modes Modes) (*Results, error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)

	set := newTargetSet(targets)
	eligible := set.filter(e.registry.CanResolve)
	logger.Info("Starting resolution run.",
		"targets", len(set.ordered), "eligible", len(eligible),
		"virtualized", modes.Virtualized, "local", modes.Local)

	res := &Results{
		RunID:       runID,
		Virtualized: results.NewPaths(results.Virtualized),
		Local:       results.NewPaths(results.Local),
	}
	if len(eligible) == 0 {
		logger.Info("No targets are eligible for resolution.")
		return res, nil
	}

	start := time.Now()
	rec := &recorder{}
	if modes.Virtualized {
		if err := e.runVirtualized(ctx, set, res.Virtualized, rec); err != nil {
			return nil, err
		}
	}
	if modes.Local {
		if err := e.runLocal(ctx, set, res.Local, rec); err != nil {
			return nil, err
		}
	}

	res.Outcomes = rec.sorted()
	logger.Info("Resolution run complete.",
		"resolved", len(res.Resolved(results.Virtualized))+len(res.Resolved(results.Local)),
		"cached", len(res.Cached()),
		"duration", time.Since(start))
	return res, nil
}

// targetSet indexes the targets of one run.
type targetSet struct {
	ordered []*target.Target
	byAddr  map[address.Address]*target.Target
}

func newTargetSet(targets []*target.Target) *targetSet {
	s := &targetSet{byAddr: make(map[address.Address]*target.Target, len(targets))}
	for _, t := range targets {
		if _, dup := s.byAddr[t.Address]; dup {
			continue
		}
		s.byAddr[t.Address] = t
		s.ordered = append(s.ordered, t)
	}
	sort.Slice(s.ordered, func(i, j int) bool { return address.Less(s.ordered[i].Address, s.ordered[j].Address) })
	return s
}

func (s *targetSet) filter(keep func(*target.Target) bool) []*target.Target {
	var out []*target.Target
	for _, t := range s.ordered {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *targetSet) lookup(spec string) *target.Target {
	addr, err := address.Parse(spec)
	if err != nil {
		return nil
	}
	return s.byAddr[addr]
}

// dependencies returns t's direct dependencies that are part of the run.
func (s *targetSet) dependencies(t *target.Target) []*target.Target {
	out := make([]*target.Target, 0, len(t.Dependencies))
	for _, addr := range t.Dependencies {
		if dep, ok := s.byAddr[addr]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// recorder collects outcomes from concurrent workers.
type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) sorted() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Outcome(nil), r.outcomes...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return address.Less(out[i].Address, out[j].Address)
	})
	return out
}
