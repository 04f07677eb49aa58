// internal/address/address.go
package address

import "strings"

// Address identifies a single target. It is comparable and safe to use as a
// map key.
type Address struct {
	Dir  string
	Name string
}

// New returns an Address for the given directory and name. The directory is
// normalized to slash-separated form without a trailing slash.
func New(dir, name string) Address {
	return Address{Dir: NormalizeDir(dir), Name: name}
}

// Spec serializes the Address into its canonical `dir:name` form.
func (a Address) Spec() string {
	return a.Dir + ":" + a.Name
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Spec()
}

// slugEscaper escapes the characters Slug uses as separators.
var slugEscaper = strings.NewReplacer("%", "%25", ".", "%2E", "+", "%2B", "/", "%2F", "\\", "%5C", ":", "%3A")

// Slug returns a single path element naming the address, used for
// per-target directories. Directory segments are joined with "." and the
// name follows a "+", so `a/b:x` becomes `a.b+x` and `:x` becomes `+x`.
// Distinct addresses always have distinct slugs.
func (a Address) Slug() string {
	var segs []string
	if a.Dir != "" {
		segs = strings.Split(a.Dir, "/")
	}
	for i, seg := range segs {
		segs[i] = slugEscaper.Replace(seg)
	}
	return strings.Join(segs, ".") + "+" + slugEscaper.Replace(a.Name)
}

// Less orders addresses by their canonical form.
func Less(a, b Address) bool {
	return a.Spec() < b.Spec()
}

// NormalizeDir converts a directory to the canonical form used in addresses:
// forward slashes, no leading "./" or "//", no trailing slash.
func NormalizeDir(dir string) string {
	dir = strings.ReplaceAll(dir, "\\", "/")
	dir = strings.TrimPrefix(dir, "//")
	for strings.HasPrefix(dir, "./") {
		dir = strings.TrimPrefix(dir, "./")
	}
	if dir == "." {
		return ""
	}
	return strings.TrimRight(dir, "/")
}
