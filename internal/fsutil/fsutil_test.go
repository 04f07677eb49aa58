package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib", "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "package.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "run.sh"), []byte("#!/bin/sh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "index.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "node_modules", "big"), []byte("y"), 0o644))
	require.NoError(t, os.Symlink("package.json", filepath.Join(src, "link.json")))

	skip := func(rel string, d fs.DirEntry) bool { return d.IsDir() && d.Name() == "node_modules" }
	require.NoError(t, CopyTree(src, dst, skip))

	data, err := os.ReadFile(filepath.Join(dst, "lib", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.NoDirExists(t, filepath.Join(dst, "lib", "node_modules"))

	info, err := os.Stat(filepath.Join(dst, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(dst, "link.json"))
	require.NoError(t, err)
	assert.Equal(t, "package.json", link)
}

func TestReplaceSymlink(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "deps", "a")

	require.NoError(t, ReplaceSymlink("/first", p))
	require.NoError(t, ReplaceSymlink("/second", p))

	link, err := os.Readlink(p)
	require.NoError(t, err)
	assert.Equal(t, "/second", link)
}
