package target

import (
	"fmt"
	"strings"

	"github.com/vk/pkgresolve/internal/address"
	"github.com/zclconf/go-cty/cty"
)

// Category classifies targets. Only some categories are eligible for
// dependency resolution.
type Category string

const (
	CategoryPackage  Category = "package"
	CategoryResource Category = "resource"
	CategoryTest     Category = "test"
)

// Resolvable reports whether targets of this category can be resolved by a
// registered strategy.
func (c Category) Resolvable() bool {
	return c == CategoryPackage
}

// Target is a declared buildable unit.
type Target struct {
	Address  address.Address
	Category Category
	// Type is the exact type identity used to look up a resolution
	// strategy. A type derived from another is still a distinct type.
	Type         string
	Dependencies []address.Address
	// Kwargs holds every other attribute declared for the target.
	Kwargs map[string]cty.Value
}

// SourceDir returns the target's directory relative to the build root.
func (t *Target) SourceDir() string {
	return t.Address.Dir
}

// String implements fmt.Stringer.
func (t *Target) String() string {
	return t.Address.Spec()
}

// Tags returns the stringified values of the target's `tags` kwarg. Null
// and unknown elements are skipped.
func (t *Target) Tags() []string {
	raw, ok := t.Kwargs["tags"]
	if !ok || raw.IsNull() || !raw.IsKnown() {
		return nil
	}

	ty := raw.Type()
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return []string{stringify(raw)}
	}

	tags := make([]string, 0, raw.LengthInt())
	for it := raw.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() || !v.IsKnown() {
			continue
		}
		tags = append(tags, stringify(v))
	}
	return tags
}

// StringKwarg returns the named kwarg when it is a known string.
func (t *Target) StringKwarg(name string) (string, bool) {
	v, ok := t.Kwargs[name]
	if !ok || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}

// StringsKwarg returns the named kwarg as a list of strings. A single string
// is returned as a one-element list.
func (t *Target) StringsKwarg(name string) ([]string, bool) {
	v, ok := t.Kwargs[name]
	if !ok || v.IsNull() || !v.IsKnown() {
		return nil, false
	}
	ty := v.Type()
	if ty == cty.String {
		return []string{v.AsString()}, true
	}
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, false
	}
	out := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() || !el.IsKnown() {
			return nil, false
		}
		out = append(out, stringify(el))
	}
	return out, true
}

// StringMapKwarg returns the named kwarg when it is an object or map, with
// every value stringified.
func (t *Target) StringMapKwarg(name string) (map[string]string, bool) {
	v, ok := t.Kwargs[name]
	if !ok || v.IsNull() || !v.IsKnown() {
		return nil, false
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, false
	}
	out := make(map[string]string, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, el := it.Element()
		if el.IsNull() || !el.IsKnown() {
			continue
		}
		out[k.AsString()] = stringify(el)
	}
	return out, true
}

func stringify(v cty.Value) string {
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%#v", v), "cty.")
	}
}
