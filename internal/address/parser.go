// internal/address/parser.go
package address

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned for strings that cannot be parsed as an
// address.
var ErrInvalidAddress = errors.New("invalid address")

// InvalidNameChars are the characters a target name may not contain.
const InvalidNameChars = "/:^"

// Parse parses a canonical `dir:name` string into an Address.
func Parse(spec string) (Address, error) {
	return parse(spec, "", false)
}

// ParseRelative parses an address that may use the `:name` shorthand. The
// shorthand resolves against relativeTo.
func ParseRelative(spec, relativeTo string) (Address, error) {
	return parse(spec, relativeTo, true)
}

func parse(spec, relativeTo string, allowRelative bool) (Address, error) {
	idx := strings.LastIndex(spec, ":")
	if idx < 0 {
		return Address{}, fmt.Errorf("%w: %q is missing ':'", ErrInvalidAddress, spec)
	}

	dir, name := spec[:idx], spec[idx+1:]
	if name == "" {
		return Address{}, fmt.Errorf("%w: %q has an empty target name", ErrInvalidAddress, spec)
	}
	if strings.ContainsAny(name, InvalidNameChars) {
		return Address{}, fmt.Errorf("%w: %q has an invalid target name", ErrInvalidAddress, spec)
	}

	if dir == "" && allowRelative {
		dir = relativeTo
	}
	return New(dir, name), nil
}
