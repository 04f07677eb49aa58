// Package fingerprint derives content keys for targets from the watched
// files in their results directory or source directory.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
)

// Fingerprint is a hex encoded SHA-256 digest. Equal fingerprints mean the
// watched inputs are byte-identical.
type Fingerprint string

// Labeled returns the fingerprint suffixed with the strategy name. Switching
// a target to another strategy therefore changes its persisted key.
func (f Fingerprint) Labeled(strategy string) string {
	return string(f) + "-" + strategy
}

// Short returns the first n hex characters, or the whole fingerprint when it
// is shorter.
func (f Fingerprint) Short(n int) string {
	if len(f) <= n {
		return string(f)
	}
	return string(f[:n])
}

// Dependency is one input folded into a chained fingerprint.
type Dependency struct {
	Address     address.Address
	Fingerprint Fingerprint
}

// Chain folds the chained fingerprints of a target's dependencies into its
// own, so a change anywhere upstream changes the result. Dependencies are
// hashed in address order. With no dependencies own is returned unchanged.
func Chain(own Fingerprint, deps ...Dependency) Fingerprint {
	if len(deps) == 0 {
		return own
	}
	sorted := slices.Clone(deps)
	slices.SortFunc(sorted, func(a, b Dependency) int {
		return strings.Compare(a.Address.Spec(), b.Address.Spec())
	})

	h := sha256.New()
	io.WriteString(h, string(own))
	for _, d := range sorted {
		h.Write([]byte{0})
		io.WriteString(h, d.Address.Spec())
		h.Write([]byte{0})
		io.WriteString(h, string(d.Fingerprint))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// PathLookup returns a previously published results directory for a target.
type PathLookup interface {
	PathFor(addr address.Address) (string, bool)
}

// IOError reports a watched file that could not be read.
type IOError struct {
	Target address.Address
	Path   string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("fingerprinting %s: reading %s: %v", e.Target, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrNoWatchFiles is returned by NewStrategy when no files are watched.
var ErrNoWatchFiles = errors.New("at least one watch file is required")

// Strategy computes fingerprints for targets.
type Strategy struct {
	// BuildRoot is the directory source directories are relative to.
	BuildRoot string
	// WatchFiles are file names read from the path base in order.
	WatchFiles []string
	// Paths, when set, supplies a path base published earlier in the run.
	Paths PathLookup
	// Eligible reports whether a target participates at all. A nil func
	// treats every target as eligible.
	Eligible func(t *target.Target) bool
}

// NewStrategy returns a Strategy with no path lookup and every target
// eligible.
func NewStrategy(buildRoot string, watchFiles []string) (*Strategy, error) {
	if len(watchFiles) == 0 {
		return nil, ErrNoWatchFiles
	}
	return &Strategy{BuildRoot: buildRoot, WatchFiles: append([]string(nil), watchFiles...)}, nil
}

// PathBase returns the directory watched files are read from for t.
func (s *Strategy) PathBase(t *target.Target) string {
	if s.Paths != nil {
		if dir, ok := s.Paths.PathFor(t.Address); ok {
			return dir
		}
	}
	return filepath.Join(s.BuildRoot, filepath.FromSlash(t.SourceDir()))
}

// Compute returns the fingerprint for t. The boolean is false when t is not
// eligible, in which case no files are read.
func (s *Strategy) Compute(t *target.Target) (Fingerprint, bool, error) {
	if s.Eligible != nil && !s.Eligible(t) {
		return "", false, nil
	}

	base := s.PathBase(t)
	h := sha256.New()
	for _, name := range s.WatchFiles {
		p := filepath.Join(base, name)
		data, err := os.ReadFile(p)
		if err != nil {
			return "", true, &IOError{Target: t.Address, Path: p, Err: err}
		}
		h.Write(data)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), true, nil
}
