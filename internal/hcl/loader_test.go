package hcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pkgresolve/internal/address"
	"github.com/vk/pkgresolve/internal/target"
	"github.com/vk/pkgresolve/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestLoader_Load(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"BUILD.hcl": `
			target "tools" {
			  type = "node_module"
			}
		`,
		"web/BUILD.hcl": `
			target "web" {
			  type         = "node_module"
			  dependencies = [":util", "lib/core:core"]
			  tags         = ["frontend", 2]
			  entry        = "index.js"
			}

			target "util" {
			  category = "resource"
			  type     = "files"
			}
		`,
		"lib/core/BUILD.hcl": `
			target "core" {
			  category = "package"
			  type     = "node_module"
			}
		`,
		"web/node_modules/dep/BUILD.hcl": `target "ignored" { type = "x" }`,
		".pkgresolve/copy/BUILD.hcl":     `target "ignored" { type = "x" }`,
	})

	l := NewLoader(root, nil, nil)
	files, err := l.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BUILD.hcl", "lib/core/BUILD.hcl", "web/BUILD.hcl"}, files)

	idx, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "lib/core", "web"}, idx.Dirs())
	assert.Equal(t, 4, idx.Len())

	web, ok := idx.Target(address.New("web", "web"))
	require.True(t, ok)
	assert.Equal(t, target.CategoryPackage, web.Category)
	assert.Equal(t, "node_module", web.Type)
	assert.Equal(t, []address.Address{address.New("web", "util"), address.New("lib/core", "core")}, web.Dependencies)
	assert.Equal(t, []string{"frontend", "2"}, web.Tags())
	entry, ok := web.StringKwarg("entry")
	require.True(t, ok)
	assert.Equal(t, "index.js", entry)
	assert.NotContains(t, web.Kwargs, "type")

	util, ok := idx.Target(address.New("web", "util"))
	require.True(t, ok)
	assert.Equal(t, target.CategoryResource, util.Category)
	assert.Nil(t, util.Kwargs)

	fam, ok := idx.Family("web")
	require.True(t, ok)
	assert.Equal(t, "web", fam.Targets[0].Address.Name, "declaration order is kept")
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		files       map[string]string
		errContains string
	}{
		{
			name: "duplicate name in one directory",
			files: map[string]string{
				"a/BUILD.hcl":       `target "x" { type = "t" }`,
				"a/other/BUILD.hcl": `target "x" { type = "t" }`,
				"b/BUILD.hcl": `
					target "y" { type = "t" }
					target "y" { type = "t" }
				`,
			},
			errContains: `target "y" is declared more than once in "b"`,
		},
		{
			name:        "missing type",
			files:       map[string]string{"BUILD.hcl": `target "x" {}`},
			errContains: "failed to decode HCL file",
		},
		{
			name:        "syntax error",
			files:       map[string]string{"BUILD.hcl": `target "x" {`},
			errContains: "failed to parse HCL file",
		},
		{
			name:        "unknown category",
			files:       map[string]string{"BUILD.hcl": "target \"x\" {\n type = \"t\"\n category = \"binary\"\n}"},
			errContains: `unknown category "binary"`,
		},
		{
			name:        "bad dependency",
			files:       map[string]string{"BUILD.hcl": "target \"x\" {\n type = \"t\"\n dependencies = [\"nocolon\"]\n}"},
			errContains: `dependency "nocolon"`,
		},
		{
			name:        "nested block",
			files:       map[string]string{"BUILD.hcl": "target \"x\" {\n type = \"t\"\n inner {}\n}"},
			errContains: `target "x"`,
		},
		{
			name:        "invalid name",
			files:       map[string]string{"BUILD.hcl": `target "a/b" { type = "t" }`},
			errContains: "invalid target name",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			root := t.TempDir()
			testutil.WriteFiles(t, root, tc.files)

			_, err := NewLoader(root, nil, nil).Load(ctx)
			assert.ErrorContains(t, err, tc.errContains)
		})
	}
}

func TestLoader_CustomBuildFilesAndExcludes(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"a/BUILD.hcl":      `target "a" { type = "t" }`,
		"a/TARGETS.hcl":    "target \"b\" {\n type = \"t\"\n flag = true\n}",
		"vendor/BUILD.hcl": `target "v" { type = "t" }`,
	})

	l := NewLoader(root, []string{"BUILD.hcl", "TARGETS.hcl"}, []string{"vendor/**"})
	idx, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, idx.Dirs())

	b, ok := idx.Target(address.New("a", "b"))
	require.True(t, ok)
	assert.Equal(t, cty.True, b.Kwargs["flag"])
	assert.Equal(t, []string{"BUILD.hcl", "TARGETS.hcl"}, l.BuildFiles())
}
