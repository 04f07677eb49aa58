package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/pkgresolve/internal/registry"
)

// MarkerFile is written into every results directory RecordingStrategy
// populates.
const MarkerFile = ".resolved"

// Invocation is one recorded call to RecordingStrategy.
type Invocation struct {
	Target     string
	ResultsDir string
	Mode       registry.Mode
	// DepDirs maps each dependency's address to the results directory
	// published for it when the call started.
	DepDirs map[string]string
	Start   time.Time
	End     time.Time
}

// RecordingStrategy is a registry.Strategy that records every call, writes
// a marker file into the results directory and can be told to fail or
// sleep.
type RecordingStrategy struct {
	StrategyName string
	// Sleep is how long each call takes.
	Sleep time.Duration
	// Delay maps address specs to an extra wait added to Sleep.
	Delay map[string]time.Duration
	// FailOn maps address specs to the error returned for them.
	FailOn map[string]error

	mu          sync.Mutex
	invocations []Invocation
	active      atomic.Int32
	maxActive   atomic.Int32
}

// NewRecordingStrategy returns a RecordingStrategy with the given name.
func NewRecordingStrategy(name string) *RecordingStrategy {
	return &RecordingStrategy{StrategyName: name}
}

func (s *RecordingStrategy) Name() string { return s.StrategyName }

func (s *RecordingStrategy) ResolveTarget(ctx context.Context, req *registry.Request) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		prev := s.maxActive.Load()
		if n <= prev || s.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}

	inv := Invocation{
		Target:     req.Target.Address.Spec(),
		ResultsDir: req.ResultsDir,
		Mode:       req.Mode,
		DepDirs:    make(map[string]string),
		Start:      time.Now(),
	}
	for _, dep := range req.Dependencies {
		if dir, ok := req.Paths.PathFor(dep.Address); ok {
			inv.DepDirs[dep.Address.Spec()] = dir
		}
	}

	if d := s.Sleep + s.Delay[inv.Target]; d > 0 {
		time.Sleep(d)
	}

	var err error
	if failure, ok := s.FailOn[inv.Target]; ok {
		err = failure
	} else {
		err = os.WriteFile(filepath.Join(req.ResultsDir, MarkerFile), []byte(inv.Target), 0o644)
	}
	inv.End = time.Now()

	s.mu.Lock()
	s.invocations = append(s.invocations, inv)
	s.mu.Unlock()
	return err
}

// Invocations returns every recorded call in completion order.
func (s *RecordingStrategy) Invocations() []Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Invocation(nil), s.invocations...)
}

// Targets returns the address specs of every recorded call in completion
// order.
func (s *RecordingStrategy) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.invocations))
	for _, inv := range s.invocations {
		out = append(out, inv.Target)
	}
	return out
}

// Invocation returns the last recorded call for target.
func (s *RecordingStrategy) Invocation(target string) (Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.invocations) - 1; i >= 0; i-- {
		if s.invocations[i].Target == target {
			return s.invocations[i], nil
		}
	}
	return Invocation{}, fmt.Errorf("no invocation recorded for %s", target)
}

// MaxConcurrent returns the highest number of overlapping calls observed.
func (s *RecordingStrategy) MaxConcurrent() int {
	return int(s.maxActive.Load())
}

// Reset forgets every recorded call.
func (s *RecordingStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invocations = nil
	s.maxActive.Store(0)
}

// Module registers the strategy for a set of target types.
type Module struct {
	Strategy registry.Strategy
	Types    []string
}

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	for _, ty := range m.Types {
		r.Register(ty, m.Strategy)
	}
}
