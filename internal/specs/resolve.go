package specs

import (
	"errors"
	"sort"

	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
)

// Match is a resolved pair together with the most specific spec that
// selected it.
type Match struct {
	target.Pair
	Spec AddressSpec
}

// Resolve resolves specs against idx into (address, target) pairs sorted by
// address. Pairs selected by several specs appear once. Pairs rejected by
// the specs' matcher are dropped.
//
// Every ResolutionError across all specs is returned, joined. An
// InternalConsistencyError aborts resolution immediately.
func Resolve(specs *AddressSpecs, idx *target.Index) ([]target.Pair, error) {
	matches, err := ResolveMostSpecific(specs, idx)
	if err != nil {
		return nil, err
	}
	pairs := make([]target.Pair, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, m.Pair)
	}
	return pairs, nil
}

// ResolveMostSpecific is Resolve, but also reports for each pair the most
// specific spec that selected it.
func ResolveMostSpecific(specs *AddressSpecs, idx *target.Index) ([]Match, error) {
	byAddr := make(map[address.Address]*Match)
	var errs []error

	for spec := range specs.All() {
		families, err := spec.MatchingFamilies(idx)
		if err != nil {
			if !collectable(err) {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}

		pairs, err := spec.PairsFromFamilies(families)
		if err != nil {
			if !collectable(err) {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}

		for _, p := range pairs {
			if existing, ok := byAddr[p.Address]; ok {
				existing.Spec = MoreSpecific(existing.Spec, spec)
				continue
			}
			byAddr[p.Address] = &Match{Pair: p, Spec: spec}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	matcher := specs.Matcher()
	out := make([]Match, 0, len(byAddr))
	for addr, m := range byAddr {
		if matcher.Matches(addr, m.Target) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return address.Less(out[i].Address, out[j].Address) })
	return out, nil
}

// Targets resolves specs and returns only the targets.
func Targets(specs *AddressSpecs, idx *target.Index) ([]*target.Target, error) {
	pairs, err := Resolve(specs, idx)
	if err != nil {
		return nil, err
	}
	out := make([]*target.Target, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Target)
	}
	return out, nil
}

func collectable(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr)
}
