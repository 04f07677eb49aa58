// Package results records where each target's resolved dependencies live
// for the current run.
package results

import (
	"sort"
	"sync"

	"github.com/vk/pkgresolve/internal/address"
)

// Kind distinguishes the two result maps a run maintains.
type Kind int

const (
	// Virtualized results live in per-target directories under the work dir.
	Virtualized Kind = iota
	// Local results live in the target's own source directory.
	Local
)

func (k Kind) String() string {
	switch k {
	case Virtualized:
		return "virtualized"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// Entry is one published result.
type Entry struct {
	Address address.Address
	Dir     string
}

// Paths maps target addresses to their results directory. It starts empty
// for every run and is safe for concurrent use.
type Paths struct {
	kind Kind

	mu       sync.RWMutex
	dirs     map[address.Address]string
	rewrites int
}

// NewPaths returns an empty Paths of the given kind.
func NewPaths(kind Kind) *Paths {
	return &Paths{kind: kind, dirs: make(map[address.Address]string)}
}

// Kind returns the kind the map was created with.
func (p *Paths) Kind() Kind { return p.kind }

// Resolved records dir as the results directory for addr. Recording a
// target twice keeps the last value.
func (p *Paths) Resolved(addr address.Address, dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.dirs[addr]; ok {
		p.rewrites++
	}
	p.dirs[addr] = dir
}

// PathFor returns the results directory recorded for addr.
func (p *Paths) PathFor(addr address.Address) (string, bool) {
	if p == nil {
		return "", false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	dir, ok := p.dirs[addr]
	return dir, ok
}

// Len returns the number of recorded targets.
func (p *Paths) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.dirs)
}

// Rewrites returns how many times an already recorded target was recorded
// again.
func (p *Paths) Rewrites() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rewrites
}

// Snapshot returns every entry sorted by address.
func (p *Paths) Snapshot() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Entry, 0, len(p.dirs))
	for addr, dir := range p.dirs {
		out = append(out, Entry{Address: addr, Dir: dir})
	}
	sort.Slice(out, func(i, j int) bool { return address.Less(out[i].Address, out[j].Address) })
	return out
}
