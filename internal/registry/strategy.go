package registry

import (
	"context"

	"github.com/vk/pkgresolve/internal/results"
	"github.com/vk/pkgresolve/internal/target"
)

// Mode carries the flags a strategy receives for one resolution.
type Mode struct {
	// ResolveLocally is set when results are written into the target's
	// source directory.
	ResolveLocally bool
	// InstallOptional asks the strategy to include optional dependencies.
	InstallOptional bool
	// FrozenLockfile forbids the strategy from modifying lock files.
	FrozenLockfile bool
}

// Request is everything a strategy needs to resolve one target.
type Request struct {
	Target *target.Target
	// ResultsDir is the directory the strategy must populate. For
	// virtualized resolution it exists and is empty when the call starts.
	ResultsDir string
	BuildRoot  string
	// Paths holds results published earlier in the same pass. Every
	// dependency that is itself eligible is present.
	Paths *results.Paths
	// Dependencies are the target's direct dependencies.
	Dependencies []*target.Target
	Mode         Mode
}

// Strategy resolves dependencies for targets of one type.
type Strategy interface {
	// Name is a stable identifier, used to label fingerprints and to name
	// result directories.
	Name() string
	ResolveTarget(ctx context.Context, req *Request) error
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	StrategyName string
	Fn           func(ctx context.Context, req *Request) error
}

func (f StrategyFunc) Name() string { return f.StrategyName }

func (f StrategyFunc) ResolveTarget(ctx context.Context, req *Request) error {
	return f.Fn(ctx, req)
}
