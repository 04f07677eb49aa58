// Package cache persists, per target, the fingerprint and results directory
// of its last successful virtualized resolution.
package cache

import (
	"context"

	"github.com/vk/pkgresolve/internal/address"
)

// Entry is the record kept for one target.
type Entry struct {
	// Fingerprint is the labeled fingerprint (fingerprint plus strategy
	// name) the results were produced from.
	Fingerprint string `yaml:"fingerprint"`
	Strategy    string `yaml:"strategy"`
	ResultsDir  string `yaml:"results_dir"`
}

// Store reads and writes entries. Implementations are safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, addr address.Address) (Entry, bool, error)
	Put(ctx context.Context, addr address.Address, e Entry) error
	// Delete forgets addr. Deleting an unknown address is not an error.
	Delete(ctx context.Context, addr address.Address) error
}
