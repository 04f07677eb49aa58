package hcl

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/target"
	"github.com/zclconf/go-cty/cty"
)

// DefaultBuildFile is the descriptor file name looked for in every
// directory.
const DefaultBuildFile = "BUILD.hcl"

// DefaultExcludes are directory globs never searched for descriptors.
var DefaultExcludes = []string{"**/node_modules/**", "**/.git/**", ".pkgresolve/**"}

// Loader reads descriptor files under a build root.
type Loader struct {
	root       string
	buildFiles []string
	excludes   []string
}

// NewLoader returns a Loader for root. buildFiles are descriptor file names
// (or globs); empty means DefaultBuildFile. excludes are added to
// DefaultExcludes and are matched against slash-separated paths relative to
// root.
func NewLoader(root string, buildFiles, excludes []string) *Loader {
	if len(buildFiles) == 0 {
		buildFiles = []string{DefaultBuildFile}
	}
	return &Loader{
		root:       root,
		buildFiles: append([]string(nil), buildFiles...),
		excludes:   append(append([]string(nil), DefaultExcludes...), excludes...),
	}
}

// BuildFiles returns the descriptor file names the loader looks for.
func (l *Loader) BuildFiles() []string { return append([]string(nil), l.buildFiles...) }

// Discover returns every descriptor file under the root, relative to it and
// sorted.
func (l *Loader) Discover(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	fsys := os.DirFS(l.root)

	seen := make(map[string]struct{})
	var files []string
	for _, name := range l.buildFiles {
		matches, err := doublestar.Glob(fsys, path.Join("**", name), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("searching for %s under %s: %w", name, l.root, err)
		}
		for _, m := range matches {
			if l.excluded(m) {
				continue
			}
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	logger.Debug("Discovered descriptor files.", "count", len(files), "root", l.root)
	return files, nil
}

func (l *Loader) excluded(rel string) bool {
	for _, pattern := range l.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Load discovers and decodes every descriptor into an index. Two targets
// with the same name in one directory are an error.
func (l *Loader) Load(ctx context.Context) (*target.Index, error) {
	files, err := l.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return l.LoadFiles(ctx, files)
}

// LoadFiles decodes the given descriptor files, relative to the root.
func (l *Loader) LoadFiles(ctx context.Context, files []string) (*target.Index, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	families := make(map[string]*target.Family)
	var dirs []string
	for _, rel := range files {
		dir := address.NormalizeDir(path.Dir(rel))
		fam, ok := families[dir]
		if !ok {
			fam = &target.Family{Dir: dir}
			families[dir] = fam
			dirs = append(dirs, dir)
		}

		targets, err := l.decodeFile(parser, rel, dir)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			for _, existing := range fam.Targets {
				if existing.Address.Name == t.Address.Name {
					return nil, fmt.Errorf("%s: target %q is declared more than once in %q", rel, t.Address.Name, dir)
				}
			}
			fam.Targets = append(fam.Targets, t)
		}
	}

	sort.Strings(dirs)
	ordered := make([]*target.Family, 0, len(dirs))
	total := 0
	for _, dir := range dirs {
		ordered = append(ordered, families[dir])
		total += len(families[dir].Targets)
	}
	logger.Debug("Loaded descriptor files.", "files", len(files), "families", len(ordered), "targets", total)
	return target.NewIndex(ordered...)
}

func (l *Loader) decodeFile(parser *hclparse.Parser, rel, dir string) ([]*target.Target, error) {
	full := filepath.Join(l.root, filepath.FromSlash(rel))
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor %s: %w", rel, err)
	}

	file, diags := parser.ParseHCL(src, rel)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", rel, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", rel, diags)
	}

	out := make([]*target.Target, 0, len(root.Targets))
	for _, block := range root.Targets {
		t, err := translateTarget(block, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func translateTarget(block *targetBlock, dir string) (*target.Target, error) {
	if _, err := address.Parse(":" + block.Name); err != nil {
		return nil, fmt.Errorf("target %q: %w", block.Name, err)
	}

	category := target.Category(block.Category)
	switch category {
	case "":
		category = target.CategoryPackage
	case target.CategoryPackage, target.CategoryResource, target.CategoryTest:
	default:
		return nil, fmt.Errorf("target %q: unknown category %q", block.Name, block.Category)
	}

	t := &target.Target{
		Address:  address.New(dir, block.Name),
		Category: category,
		Type:     block.Type,
	}
	for _, raw := range block.Dependencies {
		dep, err := address.ParseRelative(raw, dir)
		if err != nil {
			return nil, fmt.Errorf("target %q: dependency %q: %w", block.Name, raw, err)
		}
		t.Dependencies = append(t.Dependencies, dep)
	}

	attrs, diags := block.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("target %q: %w", block.Name, diags)
	}
	if len(attrs) > 0 {
		t.Kwargs = make(map[string]cty.Value, len(attrs))
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("target %q: attribute %q: %w", block.Name, name, diags)
		}
		t.Kwargs[name] = val
	}
	return t, nil
}
