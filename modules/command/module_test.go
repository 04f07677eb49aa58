package command

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

func strs(vals ...string) cty.Value {
	out := make([]cty.Value, 0, len(vals))
	for _, v := range vals {
		out = append(out, cty.StringVal(v))
	}
	return cty.TupleVal(out)
}

func newCommandTarget(kwargs map[string]cty.Value) *target.Target {
	return &target.Target{Address: address.New("web", "web"), Category: target.CategoryPackage, Type: Type, Kwargs: kwargs}
}

func TestArgs(t *testing.T) {
	tgt := newCommandTarget(map[string]cty.Value{
		"command":              strs("yarn", "install"),
		"frozen_lockfile_flag": cty.StringVal("--frozen-lockfile"),
		"skip_optional_flag":   cty.StringVal("--ignore-optional"),
	})

	testCases := []struct {
		name     string
		mode     registry.Mode
		expected []string
	}{
		{name: "virtualized", mode: registry.Mode{FrozenLockfile: true}, expected: []string{"yarn", "install", "--frozen-lockfile", "--ignore-optional"}},
		{name: "local", mode: registry.Mode{ResolveLocally: true, InstallOptional: true}, expected: []string{"yarn", "install"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Args(tgt, tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := Args(newCommandTarget(nil), registry.Mode{})
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestStrategy_RunsInResultsDir(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	out := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"web/package.json": "{}"})

	tgt := newCommandTarget(map[string]cty.Value{
		"command": strs("sh", "-c", `printf '%s %s' "$PKGRESOLVE_TARGET" "$GREETING" > result.txt`),
		"env":     cty.ObjectVal(map[string]cty.Value{"GREETING": cty.StringVal("hello")}),
	})
	s := &Strategy{Environ: func() []string { return []string{"PATH=" + os.Getenv("PATH")} }}

	err := s.ResolveTarget(ctx, &registry.Request{
		Target:     tgt,
		ResultsDir: out,
		BuildRoot:  root,
		Paths:      results.NewPaths(results.Virtualized),
		Mode:       registry.Mode{FrozenLockfile: true},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "result.txt"))
	require.NoError(t, err)
	assert.Equal(t, "web:web hello", string(data))
	assert.FileExists(t, filepath.Join(out, "package.json"))
}

func TestStrategy_FailureIncludesOutput(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"web/package.json": "{}"})

	tgt := newCommandTarget(map[string]cty.Value{
		"command": strs("sh", "-c", "echo lockfile out of date; exit 3"),
	})
	err := (&Strategy{}).ResolveTarget(ctx, &registry.Request{
		Target:     tgt,
		ResultsDir: t.TempDir(),
		BuildRoot:  root,
		Paths:      results.NewPaths(results.Virtualized),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lockfile out of date")
	assert.Contains(t, err.Error(), "exit status 3")
}
