package specs

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
)

// compiledCacheSize bounds the number of distinct matchers whose compiled
// exclude patterns are kept.
const compiledCacheSize = 256

// compiledExcludes memoizes compiled exclude patterns by Matcher.Key.
var compiledExcludes = mustLRU(compiledCacheSize)

func mustLRU(size int) *lru.Cache[string, []*regexp.Regexp] {
	c, err := lru.New[string, []*regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return c
}

// tagFilter is one required-tag entry. It passes when any alternative is
// present, inverted when negate is set.
type tagFilter struct {
	negate       bool
	alternatives []string
}

func parseTagFilter(raw string) tagFilter {
	f := tagFilter{}
	switch {
	case strings.HasPrefix(raw, "-"):
		f.negate = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}
	for _, alt := range strings.Split(raw, ",") {
		if alt = strings.TrimSpace(alt); alt != "" {
			f.alternatives = append(f.alternatives, alt)
		}
	}
	return f
}

func (f tagFilter) matches(tags map[string]struct{}) bool {
	found := false
	for _, alt := range f.alternatives {
		if _, ok := tags[alt]; ok {
			found = true
			break
		}
	}
	return found != f.negate
}

// Matcher filters resolved (address, target) pairs by required tags and
// excluded address patterns. Tags and patterns are sets: duplicates collapse
// and order is irrelevant, so matchers built from equal sets are Equal and
// share compiled state.
//
// A matcher with no tags and no patterns matches everything.
type Matcher struct {
	tags     []string
	excludes []string
	key      string

	filters  []tagFilter
	compiled []*regexp.Regexp
}

// NewMatcher builds a Matcher. An exclude pattern that is not a valid
// regular expression is an error.
func NewMatcher(tags, excludePatterns []string) (*Matcher, error) {
	m := &Matcher{
		tags:     uniqueSorted(tags),
		excludes: uniqueSorted(excludePatterns),
	}
	m.key = strings.Join(m.tags, "\x1f") + "\x1e" + strings.Join(m.excludes, "\x1f")

	for _, tag := range m.tags {
		m.filters = append(m.filters, parseTagFilter(tag))
	}

	compiled, err := compileExcludes(m.key, m.excludes)
	if err != nil {
		return nil, err
	}
	m.compiled = compiled
	return m, nil
}

func compileExcludes(key string, patterns []string) ([]*regexp.Regexp, error) {
	if cached, ok := compiledExcludes.Get(key); ok {
		return cached, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	compiledExcludes.Add(key, out)
	return out, nil
}

// Tags returns the matcher's required tag entries, sorted.
func (m *Matcher) Tags() []string { return append([]string(nil), m.tags...) }

// ExcludePatterns returns the matcher's exclude patterns, sorted.
func (m *Matcher) ExcludePatterns() []string { return append([]string(nil), m.excludes...) }

// Key returns the structural identity of the matcher.
func (m *Matcher) Key() string { return m.key }

// Equal reports whether m and other were built from equal tag and pattern
// sets.
func (m *Matcher) Equal(other *Matcher) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.key == other.key
}

// Matches reports whether the pair passes the matcher.
func (m *Matcher) Matches(addr address.Address, t *target.Target) bool {
	return !m.excluded(addr) && m.tagsMatch(t)
}

func (m *Matcher) excluded(addr address.Address) bool {
	spec := addr.Spec()
	for _, re := range m.compiled {
		if re.MatchString(spec) {
			return true
		}
	}
	return false
}

func (m *Matcher) tagsMatch(t *target.Target) bool {
	if len(m.filters) == 0 {
		return true
	}
	tags := make(map[string]struct{})
	for _, tag := range t.Tags() {
		tags[tag] = struct{}{}
	}
	for _, f := range m.filters {
		if !f.matches(tags) {
			return false
		}
	}
	return true
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
