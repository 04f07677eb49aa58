package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/registry"
)

// Type is the target type this module registers for.
const Type = "print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means os.Stdout.
	Out io.Writer
}

// Register registers the strategy with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.Register(Type, &Strategy{out: out})
}

// Strategy resolves nothing. It prints the target, its results directory
// and the published directory of each dependency, which makes it useful
// for inspecting a dependency graph.
type Strategy struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *Strategy) Name() string { return "print" }

func (s *Strategy) ResolveTarget(ctx context.Context, req *registry.Request) error {
	ctxlog.FromContext(ctx).Info("Printing target.", "target", req.Target.Address)

	lines := make([]string, 0, len(req.Dependencies))
	for _, dep := range req.Dependencies {
		dir, ok := req.Paths.PathFor(dep.Address)
		if !ok {
			dir = "(unresolved)"
		}
		lines = append(lines, fmt.Sprintf("      %s = %q\n", dep.Address, dir))
	}
	sort.Strings(lines)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "%s -> %s\n", req.Target.Address, req.ResultsDir); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := io.WriteString(s.out, line); err != nil {
			return err
		}
	}
	return nil
}
