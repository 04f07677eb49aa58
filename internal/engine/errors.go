package engine

import (
	"errors"
	"fmt"

	"github.com/vk/pkgresolve/internal/address"
)

// ErrNoRegistry is returned by New when Options.Registry is nil.
var ErrNoRegistry = errors.New("engine: a registry is required")

// StrategyError wraps a failure reported by a resolution strategy.
type StrategyError struct {
	Target   address.Address
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("resolving %s with %s: %v", e.Target, e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
