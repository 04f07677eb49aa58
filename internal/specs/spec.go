package specs

import (
	"fmt"
	"path"
	"strings"

	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
)

// AddressSpec is a single address selector. The set of implementations is
// closed; see SingleAddress, SiblingAddresses, DescendantAddresses and
// AscendantAddresses.
type AddressSpec interface {
	// SpecString returns the canonical, parseable form of the spec.
	SpecString() string

	// MatchingFamilies returns the families in idx this spec can select
	// from. Specs bound to a single directory fail when that directory
	// declares no targets.
	MatchingFamilies(idx *target.Index) ([]*target.Family, error)

	// PairsFromFamilies returns the (address, target) pairs this spec
	// selects from families.
	PairsFromFamilies(families []*target.Family) ([]target.Pair, error)

	// GlobPatterns returns glob patterns, relative to the build root,
	// matching every descriptor file the spec covers.
	GlobPatterns(buildPatterns []string) []string

	specificity() int
}

// SingleAddress selects exactly one target.
type SingleAddress struct {
	Directory string
	Name      string
}

// NewSingleAddress returns a SingleAddress, rejecting an absent name or one
// containing any of address.InvalidNameChars. The build root is addressed
// with an empty directory, so the directory is not checked.
func NewSingleAddress(dir, name string) (SingleAddress, error) {
	if name == "" {
		return SingleAddress{}, &SpecSyntaxError{Input: dir + ":", Reason: "a SingleAddress must have a name"}
	}
	if strings.ContainsAny(name, address.InvalidNameChars) {
		return SingleAddress{}, &SpecSyntaxError{
			Input:  dir + ":" + name,
			Reason: fmt.Sprintf("a target name may not contain any of %q", address.InvalidNameChars),
		}
	}
	return SingleAddress{Directory: address.NormalizeDir(dir), Name: name}, nil
}

func (s SingleAddress) SpecString() string { return s.Directory + ":" + s.Name }

func (s SingleAddress) MatchingFamilies(idx *target.Index) ([]*target.Family, error) {
	return familiesForDir(s, idx, s.Directory)
}

// PairsFromFamilies returns the single pair named by s. Zero matches is a
// resolution error; more than one is an InternalConsistencyError because a
// family may declare a name at most once.
func (s SingleAddress) PairsFromFamilies(families []*target.Family) ([]target.Pair, error) {
	if len(families) != 1 {
		return nil, &InternalConsistencyError{
			Spec:   s.SpecString(),
			Reason: "expected exactly one address family",
			Count:  len(families),
		}
	}
	family := families[0]

	var pairs []target.Pair
	for _, p := range family.Addressables() {
		if p.Address.Name == s.Name {
			pairs = append(pairs, p)
		}
	}

	switch len(pairs) {
	case 0:
		return nil, nameNotFound(s, family)
	case 1:
		return pairs, nil
	default:
		return nil, &InternalConsistencyError{
			Spec:   s.SpecString(),
			Reason: "address family declares the name more than once",
			Count:  len(pairs),
		}
	}
}

func (s SingleAddress) GlobPatterns(buildPatterns []string) []string {
	return globsInDir(s.Directory, buildPatterns)
}

func (SingleAddress) specificity() int { return 0 }

// SiblingAddresses selects every target declared directly in a directory.
type SiblingAddresses struct {
	Directory string
}

func (s SiblingAddresses) SpecString() string { return s.Directory + ":" }

func (s SiblingAddresses) MatchingFamilies(idx *target.Index) ([]*target.Family, error) {
	return familiesForDir(s, idx, s.Directory)
}

func (s SiblingAddresses) PairsFromFamilies(families []*target.Family) ([]target.Pair, error) {
	return allPairs(families), nil
}

func (s SiblingAddresses) GlobPatterns(buildPatterns []string) []string {
	return globsInDir(s.Directory, buildPatterns)
}

func (SiblingAddresses) specificity() int { return 1 }

// DescendantAddresses selects every target in a directory and all of its
// subdirectories. Matching nothing is an error.
type DescendantAddresses struct {
	Directory string
}

func (s DescendantAddresses) SpecString() string { return s.Directory + "::" }

func (s DescendantAddresses) MatchingFamilies(idx *target.Index) ([]*target.Family, error) {
	var out []*target.Family
	for _, f := range idx.Families() {
		if isWithin(f.Dir, s.Directory) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s DescendantAddresses) PairsFromFamilies(families []*target.Family) ([]target.Pair, error) {
	pairs := allPairs(families)
	if len(pairs) == 0 {
		return nil, &ResolutionError{Spec: s.SpecString(), Kind: ErrNoTargets, Dir: s.Directory}
	}
	return pairs, nil
}

func (s DescendantAddresses) GlobPatterns(buildPatterns []string) []string {
	out := make([]string, 0, len(buildPatterns))
	for _, pat := range buildPatterns {
		out = append(out, path.Join(s.Directory, "**", pat))
	}
	return out
}

func (DescendantAddresses) specificity() int { return 3 }

// AscendantAddresses selects every target in a directory and in each of its
// ancestors up to the build root.
type AscendantAddresses struct {
	Directory string
}

func (s AscendantAddresses) SpecString() string { return s.Directory + "^" }

func (s AscendantAddresses) MatchingFamilies(idx *target.Index) ([]*target.Family, error) {
	var out []*target.Family
	for _, f := range idx.Families() {
		if isWithin(s.Directory, f.Dir) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s AscendantAddresses) PairsFromFamilies(families []*target.Family) ([]target.Pair, error) {
	return allPairs(families), nil
}

func (s AscendantAddresses) GlobPatterns(buildPatterns []string) []string {
	var out []string
	for _, pat := range buildPatterns {
		for _, dir := range ancestors(s.Directory) {
			out = append(out, path.Join(dir, pat))
		}
	}
	return out
}

func (AscendantAddresses) specificity() int { return 2 }

func familiesForDir(s AddressSpec, idx *target.Index, dir string) ([]*target.Family, error) {
	f, ok := idx.Family(dir)
	if !ok {
		return nil, &ResolutionError{Spec: s.SpecString(), Kind: ErrNoBuildFiles, Dir: dir}
	}
	return []*target.Family{f}, nil
}

func allPairs(families []*target.Family) []target.Pair {
	var pairs []target.Pair
	for _, f := range families {
		pairs = append(pairs, f.Addressables()...)
	}
	return pairs
}

func globsInDir(dir string, buildPatterns []string) []string {
	out := make([]string, 0, len(buildPatterns))
	for _, pat := range buildPatterns {
		out = append(out, path.Join(dir, pat))
	}
	return out
}

// isWithin reports whether dir is root or lies below it.
func isWithin(dir, root string) bool {
	if root == "" || dir == root {
		return true
	}
	return strings.HasPrefix(dir, root+"/")
}

// ancestors returns dir followed by each of its parents, ending with the
// build root ("").
func ancestors(dir string) []string {
	out := []string{dir}
	for dir != "" {
		parent := path.Dir(dir)
		if parent == "." {
			parent = ""
		}
		dir = parent
		out = append(out, dir)
	}
	return out
}
