// Package copysources resolves a target by copying its source directory
// into the results directory and linking each resolved dependency under
// it.
package copysources

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/fsutil"
	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/target"
)

// Type is the target type this module registers for.
const Type = "copy_sources"

// DefaultDepsDir is the results subdirectory dependency links are placed in.
const DefaultDepsDir = "deps"

// defaultIgnore are never copied out of a source directory.
var defaultIgnore = []string{"**/node_modules", "**/.git"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the strategy with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, &Strategy{})
}

// Strategy copies sources and links dependencies. Targets may set:
//
//	deps_dir = "deps"            # where dependency links go
//	ignore   = ["dist/**"]       # extra globs left out of the copy
type Strategy struct{}

func (s *Strategy) Name() string { return "copysources" }

func (s *Strategy) ResolveTarget(ctx context.Context, req *registry.Request) error {
	logger := ctxlog.FromContext(ctx).With("target", req.Target.Address)
	src := filepath.Join(req.BuildRoot, filepath.FromSlash(req.Target.SourceDir()))

	if !req.Mode.ResolveLocally {
		ignore := ignorePatterns(req.Target)
		skip := func(rel string, d fs.DirEntry) bool {
			// The results directory may live below the source directory,
			// e.g. for a target declared at the build root.
			if containsDir(filepath.Join(src, filepath.FromSlash(rel)), req.ResultsDir) {
				return true
			}
			for _, pattern := range ignore {
				if ok, _ := doublestar.Match(pattern, rel); ok {
					return true
				}
			}
			return false
		}
		logger.Debug("Copying sources.", "from", src, "to", req.ResultsDir)
		if err := fsutil.CopyTree(src, req.ResultsDir, skip); err != nil {
			return fmt.Errorf("copying sources: %w", err)
		}
	}

	return LinkDependencies(ctx, req, depsDir(req.Target))
}

// LinkDependencies symlinks the published results directory of every
// dependency of req into <ResultsDir>/<depsDir>/<dependency name>.
// Dependencies without published results are skipped. Two linked
// dependencies sharing a name are a *LinkCollisionError and nothing is linked.
func LinkDependencies(ctx context.Context, req *registry.Request, depsDir string) error {
	logger := ctxlog.FromContext(ctx)

	type link struct {
		dep    address.Address
		target string
	}
	byName := make(map[string]link, len(req.Dependencies))
	var names []string
	for _, dep := range req.Dependencies {
		dir, ok := req.Paths.PathFor(dep.Address)
		if !ok {
			continue
		}
		if prev, ok := byName[dep.Address.Name]; ok && prev.dep != dep.Address {
			return &LinkCollisionError{Target: req.Target.Address, Name: dep.Address.Name, First: prev.dep, Second: dep.Address}
		}
		if _, ok := byName[dep.Address.Name]; !ok {
			names = append(names, dep.Address.Name)
		}
		byName[dep.Address.Name] = link{dep: dep.Address, target: dir}
	}

	for _, name := range names {
		l := byName[name]
		path := filepath.Join(req.ResultsDir, depsDir, name)
		if err := fsutil.ReplaceSymlink(l.target, path); err != nil {
			return fmt.Errorf("linking dependency %s: %w", l.dep, err)
		}
		logger.Debug("Linked dependency.", "dependency", l.dep, "link", path)
	}
	return nil
}

// LinkCollisionError reports two dependencies that would share one link.
type LinkCollisionError struct {
	Target address.Address
	Name   string
	First  address.Address
	Second address.Address
}

func (e *LinkCollisionError) Error() string {
	return fmt.Sprintf("linking dependencies of %s: %s and %s would both be linked as %q", e.Target, e.First, e.Second, e.Name)
}

// containsDir reports whether dir is p or lies below it.
func containsDir(p, dir string) bool {
	return dir == p || strings.HasPrefix(dir, p+string(filepath.Separator))
}

func depsDir(t *target.Target) string {
	if dir, ok := t.StringKwarg("deps_dir"); ok && dir != "" {
		return filepath.FromSlash(dir)
	}
	return DefaultDepsDir
}

func ignorePatterns(t *target.Target) []string {
	out := append([]string(nil), defaultIgnore...)
	if extra, ok := t.StringsKwarg("ignore"); ok {
		out = append(out, extra...)
	}
	return out
}
