package memory

import (
	"context"
	"sync"

	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/cache"
)

// Store is an in-memory implementation of cache.Store using sync.Map for
// fine-grained concurrent access without global lock contention.
type Store struct {
	entries sync.Map // Key: address.Address, Value: cache.Entry
}

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{}
}

var _ cache.Store = (*Store)(nil)

// Get retrieves the entry recorded for addr.
func (s *Store) Get(ctx context.Context, addr address.Address) (cache.Entry, bool, error) {
	v, ok := s.entries.Load(addr)
	if !ok {
		return cache.Entry{}, false, nil
	}
	return v.(cache.Entry), true, nil
}

// Put records e for addr, replacing any previous entry.
func (s *Store) Put(ctx context.Context, addr address.Address, e cache.Entry) error {
	s.entries.Store(addr, e)
	return nil
}

// Delete forgets addr.
func (s *Store) Delete(ctx context.Context, addr address.Address) error {
	s.entries.Delete(addr)
	return nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
