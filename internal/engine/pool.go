package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/graph"
)

// job is one graph node scheduled on the pool.
type job struct {
	id         string
	depCount   atomic.Int32
	dependents []*job
	skipOnce   sync.Once
}

// pool runs a function for every node of a graph so that a node starts only
// after all of its dependencies succeeded. After the first failure no new
// work starts; work already running finishes.
type pool struct {
	workers int
	wg      sync.WaitGroup

	errOnce  sync.Once
	firstErr error
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	return &pool{workers: workers}
}

// run executes fn for every node of g. fn receives ctx, not the pool's
// internal scheduling context, so running work is never interrupted by
// another node's failure.
func (p *pool) run(ctx context.Context, g *graph.Graph, fn func(ctx context.Context, id string) error) error {
	logger := ctxlog.FromContext(ctx)

	ids := g.Nodes()
	if len(ids) == 0 {
		return nil
	}
	jobs := make(map[string]*job, len(ids))
	for _, id := range ids {
		jobs[id] = &job{id: id}
	}
	var roots []*job
	for _, id := range ids {
		j := jobs[id]
		deps, err := g.Dependencies(id)
		if err != nil {
			return err
		}
		j.depCount.Store(int32(len(deps)))
		if len(deps) == 0 {
			roots = append(roots, j)
		}
		dependents, err := g.Dependents(id)
		if err != nil {
			return err
		}
		for _, d := range dependents {
			j.dependents = append(j.dependents, jobs[d])
		}
	}

	readyChan := make(chan *job, len(jobs))
	schedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, j := range roots {
		readyChan <- j
	}
	logger.Debug("Found root nodes.", "count", len(roots))

	p.wg.Add(len(jobs))
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx, schedCtx, cancel, readyChan, fn, i)
	}

	p.wg.Wait()
	close(readyChan)

	if p.firstErr != nil {
		return p.firstErr
	}
	return ctx.Err()
}

func (p *pool) fail(err error) {
	p.errOnce.Do(func() { p.firstErr = err })
}

// skip marks j and everything downstream of it as finished without running.
func (p *pool) skip(j *job) {
	stack := []*job{j}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur.skipOnce.Do(func() {
			p.wg.Done()
			stack = append(stack, cur.dependents...)
		})
	}
}

func (p *pool) worker(ctx, schedCtx context.Context, cancel context.CancelFunc, readyChan chan *job, fn func(context.Context, string) error, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for j := range readyChan {
		if schedCtx.Err() != nil {
			logger.Debug("Scheduling stopped, skipping node.", "node", j.id)
			p.skip(j)
			continue
		}

		// Claim the job so a concurrent skip cannot also finish it.
		claimed := false
		j.skipOnce.Do(func() { claimed = true })
		if !claimed {
			continue
		}

		if err := fn(ctx, j.id); err != nil {
			logger.Debug("Node failed, stopping scheduling.", "node", j.id, "error", err)
			p.fail(err)
			cancel()
			for _, d := range j.dependents {
				p.skip(d)
			}
			p.wg.Done()
			continue
		}

		for _, d := range j.dependents {
			if d.depCount.Add(-1) == 0 {
				readyChan <- d
			}
		}
		p.wg.Done()
	}
}
