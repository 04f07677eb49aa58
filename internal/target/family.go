package target

import (
	"fmt"
	"sort"

	"github.com/vk/pkgresolve/internal/address"
)

// Family is the set of targets declared directly in one directory.
type Family struct {
	Dir     string
	Targets []*Target
}

// Pair couples an address with the target declared at it.
type Pair struct {
	Address address.Address
	Target  *Target
}

// Addressables returns the family's (address, target) pairs in declaration
// order.
func (f *Family) Addressables() []Pair {
	pairs := make([]Pair, 0, len(f.Targets))
	for _, t := range f.Targets {
		pairs = append(pairs, Pair{Address: t.Address, Target: t})
	}
	return pairs
}

// Index maps directories to the families declared in them. It is read-only
// once constructed and safe for concurrent reads.
type Index struct {
	families map[string]*Family
	targets  map[address.Address]*Target
}

// NewIndex builds an Index. Two families for the same directory are an
// error; duplicate names within a family are left to the resolver to detect.
func NewIndex(families ...*Family) (*Index, error) {
	idx := &Index{
		families: make(map[string]*Family, len(families)),
		targets:  make(map[address.Address]*Target),
	}
	for _, f := range families {
		dir := address.NormalizeDir(f.Dir)
		if _, exists := idx.families[dir]; exists {
			return nil, fmt.Errorf("duplicate address family for directory %q", dir)
		}
		idx.families[dir] = f
		for _, t := range f.Targets {
			idx.targets[t.Address] = t
		}
	}
	return idx, nil
}

// Family returns the family declared in dir.
func (idx *Index) Family(dir string) (*Family, bool) {
	f, ok := idx.families[address.NormalizeDir(dir)]
	return f, ok
}

// Families returns all families sorted by directory.
func (idx *Index) Families() []*Family {
	out := make([]*Family, 0, len(idx.families))
	for _, dir := range idx.Dirs() {
		out = append(out, idx.families[dir])
	}
	return out
}

// Dirs returns every directory that declares a family, sorted.
func (idx *Index) Dirs() []string {
	dirs := make([]string, 0, len(idx.families))
	for dir := range idx.families {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Target looks up a target by address.
func (idx *Index) Target(addr address.Address) (*Target, bool) {
	t, ok := idx.targets[addr]
	return t, ok
}

// Len returns the number of targets in the index.
func (idx *Index) Len() int {
	return len(idx.targets)
}

// Closure returns roots together with every target they transitively depend
// on, sorted by address. A dependency on an address that is not in the index
// is an error.
func (idx *Index) Closure(roots []*Target) ([]*Target, error) {
	seen := make(map[address.Address]*Target, len(roots))
	stack := make([]*Target, 0, len(roots))
	for _, r := range roots {
		if _, ok := seen[r.Address]; !ok {
			seen[r.Address] = r
			stack = append(stack, r)
		}
	}

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, depAddr := range t.Dependencies {
			if _, ok := seen[depAddr]; ok {
				continue
			}
			dep, ok := idx.targets[depAddr]
			if !ok {
				return nil, fmt.Errorf("target %s depends on %s, which is not declared", t.Address, depAddr)
			}
			seen[depAddr] = dep
			stack = append(stack, dep)
		}
	}

	out := make([]*Target, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return address.Less(out[i].Address, out[j].Address) })
	return out, nil
}
