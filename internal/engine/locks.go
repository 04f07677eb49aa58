package engine

import (
	"sync"

	"github.com/vk/pkgresolve/internal/address"
)

// targetLocks hands out one mutex per target address.
type targetLocks struct {
	mu    sync.Mutex
	locks map[address.Address]*sync.Mutex
}

func newTargetLocks() *targetLocks {
	return &targetLocks{locks: make(map[address.Address]*sync.Mutex)}
}

// lock acquires the mutex for addr and returns its release func.
func (l *targetLocks) lock(addr address.Address) func() {
	l.mu.Lock()
	m, ok := l.locks[addr]
	if !ok {
		m = &sync.Mutex{}
		l.locks[addr] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
