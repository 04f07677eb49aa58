package specs

import (
	"errors"
	"iter"
	"slices"
)

// AddressSpecs is an ordered sequence of specs plus the matcher that filters
// their combined result.
type AddressSpecs struct {
	specs   []AddressSpec
	matcher *Matcher
}

// NewAddressSpecs combines specs with a matcher built from tags and
// excludePatterns.
func NewAddressSpecs(specs []AddressSpec, tags, excludePatterns []string) (*AddressSpecs, error) {
	m, err := NewMatcher(tags, excludePatterns)
	if err != nil {
		return nil, err
	}
	return &AddressSpecs{specs: slices.Clone(specs), matcher: m}, nil
}

// Parse parses every raw spec string. All syntax errors are reported
// together.
func Parse(raw []string, tags, excludePatterns []string) (*AddressSpecs, error) {
	var (
		parsed []AddressSpec
		errs   []error
	)
	for _, s := range raw {
		spec, err := ParseSpec(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, spec)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewAddressSpecs(parsed, tags, excludePatterns)
}

// All iterates the specs in their original order.
func (s *AddressSpecs) All() iter.Seq[AddressSpec] {
	return slices.Values(s.specs)
}

// Matcher returns the filter applied to resolved pairs.
func (s *AddressSpecs) Matcher() *Matcher { return s.matcher }

// Len returns the number of specs.
func (s *AddressSpecs) Len() int { return len(s.specs) }

// GlobPatterns returns the union of every spec's descriptor glob patterns,
// in spec order without duplicates.
func (s *AddressSpecs) GlobPatterns(buildPatterns []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, spec := range s.specs {
		for _, pat := range spec.GlobPatterns(buildPatterns) {
			if _, ok := seen[pat]; ok {
				continue
			}
			seen[pat] = struct{}{}
			out = append(out, pat)
		}
	}
	return out
}
