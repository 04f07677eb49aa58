package copysources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/results"
	"github.com/vk/pkgresolve/internal/target"
	"github.com/vk/pkgresolve/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestStrategy_CopiesAndLinks(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	out := t.TempDir()
	utilDir := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"web/package.json":         "{}",
		"web/src/index.js":         "console.log(1)",
		"web/dist/bundle.js":       "built",
		"web/node_modules/x/index": "vendored",
	})

	util := &target.Target{Address: address.New("lib", "util"), Category: target.CategoryPackage, Type: Type}
	web := &target.Target{
		Address:      address.New("web", "web"),
		Category:     target.CategoryPackage,
		Type:         Type,
		Dependencies: []address.Address{util.Address},
		Kwargs:       map[string]cty.Value{"ignore": cty.TupleVal([]cty.Value{cty.StringVal("dist")})},
	}
	paths := results.NewPaths(results.Virtualized)
	paths.Resolved(util.Address, utilDir)

	r := registry.New()
	(&Module{}).Register(r)
	s, ok := r.Lookup(web)
	require.True(t, ok)

	err := s.ResolveTarget(ctx, &registry.Request{
		Target:       web,
		ResultsDir:   out,
		BuildRoot:    root,
		Paths:        paths,
		Dependencies: []*target.Target{util},
		Mode:         registry.Mode{FrozenLockfile: true},
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "package.json"))
	assert.FileExists(t, filepath.Join(out, "src", "index.js"))
	assert.NoDirExists(t, filepath.Join(out, "dist"))
	assert.NoDirExists(t, filepath.Join(out, "node_modules"))

	link, err := os.Readlink(filepath.Join(out, DefaultDepsDir, "util"))
	require.NoError(t, err)
	assert.Equal(t, utilDir, link)
}

func TestStrategy_LocalModeOnlyLinks(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	depDir := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"web/package.json": "{}"})

	dep := &target.Target{Address: address.New("lib", "core"), Category: target.CategoryPackage, Type: Type}
	missing := &target.Target{Address: address.New("lib", "unpublished"), Category: target.CategoryResource, Type: "files"}
	web := &target.Target{
		Address:  address.New("web", "web"),
		Category: target.CategoryPackage,
		Type:     Type,
		Kwargs:   map[string]cty.Value{"deps_dir": cty.StringVal("vendor/links")},
	}
	paths := results.NewPaths(results.Local)
	paths.Resolved(dep.Address, depDir)

	sourceDir := filepath.Join(root, "web")
	err := (&Strategy{}).ResolveTarget(ctx, &registry.Request{
		Target:       web,
		ResultsDir:   sourceDir,
		BuildRoot:    root,
		Paths:        paths,
		Dependencies: []*target.Target{dep, missing},
		Mode:         registry.Mode{ResolveLocally: true, InstallOptional: true},
	})
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(sourceDir, "vendor", "links", "core"))
	require.NoError(t, err)
	assert.Equal(t, depDir, link)
	assert.NoFileExists(t, filepath.Join(sourceDir, "vendor", "links", "unpublished"))
}

func TestStrategy_SkipsResultsDirBelowSources(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"package.json":           "{}",
		".pkgresolve/cache.yaml": "version: 1",
		".pkgresolve/other/file": "x",
	})
	out := filepath.Join(root, ".pkgresolve", "copysources", "+app", "abc")
	require.NoError(t, os.MkdirAll(out, 0o755))

	app := &target.Target{Address: address.New("", "app"), Category: target.CategoryPackage, Type: Type}
	err := (&Strategy{}).ResolveTarget(ctx, &registry.Request{
		Target:     app,
		ResultsDir: out,
		BuildRoot:  root,
		Paths:      results.NewPaths(results.Virtualized),
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "package.json"))
	assert.NoDirExists(t, filepath.Join(out, ".pkgresolve"))
}

func TestLinkDependencies_SameNameInDifferentDirectoriesIsAnError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	out := t.TempDir()
	coreA := &target.Target{Address: address.New("libs/a", "core"), Category: target.CategoryPackage, Type: Type}
	coreB := &target.Target{Address: address.New("libs/b", "core"), Category: target.CategoryPackage, Type: Type}
	other := &target.Target{Address: address.New("libs/c", "extra"), Category: target.CategoryPackage, Type: Type}
	app := &target.Target{
		Address:      address.New("app", "app"),
		Category:     target.CategoryPackage,
		Type:         Type,
		Dependencies: []address.Address{other.Address, coreA.Address, coreB.Address},
	}
	paths := results.NewPaths(results.Virtualized)
	paths.Resolved(coreA.Address, t.TempDir())
	paths.Resolved(coreB.Address, t.TempDir())
	paths.Resolved(other.Address, t.TempDir())

	err := LinkDependencies(ctx, &registry.Request{
		Target:       app,
		ResultsDir:   out,
		Paths:        paths,
		Dependencies: []*target.Target{other, coreA, coreB},
	}, DefaultDepsDir)

	var collision *LinkCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "core", collision.Name)
	assert.Equal(t, coreA.Address, collision.First)
	assert.Equal(t, coreB.Address, collision.Second)
	assert.ErrorContains(t, err, `libs/a:core and libs/b:core would both be linked as "core"`)
	assert.NoDirExists(t, filepath.Join(out, DefaultDepsDir), "nothing is linked")
}
