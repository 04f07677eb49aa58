package specs

import (
	"path"
	"strings"

	"github.com/vk/pkgresolve/internal/address"
)

// ParseSpec parses the canonical string form of an AddressSpec. A bare
// directory such as `src/web` is shorthand for `src/web:web`.
func ParseSpec(s string) (AddressSpec, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, &SpecSyntaxError{Input: s, Reason: "empty spec"}
	}
	raw = strings.TrimPrefix(raw, "//")

	switch {
	case strings.HasSuffix(raw, "::"):
		return DescendantAddresses{Directory: cleanDir(strings.TrimSuffix(raw, "::"))}, nil
	case strings.HasSuffix(raw, "^"):
		return AscendantAddresses{Directory: cleanDir(strings.TrimSuffix(raw, "^"))}, nil
	case strings.HasSuffix(raw, ":"):
		return SiblingAddresses{Directory: cleanDir(strings.TrimSuffix(raw, ":"))}, nil
	}

	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		dir, name := raw[:idx], raw[idx+1:]
		if strings.ContainsAny(name, "/^") {
			return nil, &SpecSyntaxError{Input: s, Reason: "invalid target name " + name}
		}
		return NewSingleAddress(cleanDir(dir), name)
	}

	dir := cleanDir(raw)
	if dir == "" {
		return nil, &SpecSyntaxError{Input: s, Reason: "a bare spec must name a directory"}
	}
	return NewSingleAddress(dir, path.Base(dir))
}

func cleanDir(dir string) string {
	return address.NormalizeDir(dir)
}
