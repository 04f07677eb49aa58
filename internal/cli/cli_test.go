package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pkgresolve/internal/app"
)

func TestParse_Defaults(t *testing.T) {
	root := t.TempDir()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{"--build-root", root}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, root, cfg.BuildRoot)
	assert.Equal(t, filepath.Join(root, app.DefaultWorkDirName), cfg.WorkDir)
	assert.Equal(t, []string{"::"}, cfg.Specs)
	assert.Equal(t, []string{"BUILD.hcl"}, cfg.BuildFiles)
	assert.Equal(t, []string{"package.json", "yarn.lock"}, cfg.WatchFiles)
	assert.Equal(t, app.ModeVirtualized, cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.False(t, cfg.Watch)
	assert.Empty(t, out.String())
}

func TestParse_AllFlags(t *testing.T) {
	root := t.TempDir()
	args := []string{
		"--build-root", root,
		"--workdir", "out",
		"--build-file", "BUILD.hcl,BUILD.pkg.hcl",
		"--watch-file", "package.json",
		"--watch-file", "pnpm-lock.yaml",
		"--tag", "frontend,web",
		"--tag", "-slow",
		"--exclude", "^legacy/",
		"--mode", "BOTH",
		"--workers", "3",
		"--log-level", "DEBUG",
		"--log-format", "json",
		"--metrics-port", "9100",
		"--watch",
		"--watch-debounce", "50ms",
		"web:app", "libs::",
	}

	cfg, shouldExit, err := Parse(args, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, filepath.Join(root, "out"), cfg.WorkDir)
	assert.Equal(t, []string{"web:app", "libs::"}, cfg.Specs)
	assert.Equal(t, []string{"BUILD.hcl", "BUILD.pkg.hcl"}, cfg.BuildFiles)
	assert.Equal(t, []string{"package.json", "pnpm-lock.yaml"}, cfg.WatchFiles)
	assert.Equal(t, []string{"frontend,web", "-slow"}, cfg.Tags)
	assert.Equal(t, []string{"^legacy/"}, cfg.Excludes)
	assert.Equal(t, app.ModeBoth, cfg.Mode)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 9100, cfg.MetricsPort)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 50*time.Millisecond, cfg.WatchDebounce)
}

func TestParse_ShouldExit(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"help", []string{"-h"}, "Usage:"},
		{"version", []string{"version"}, "pkgresolve version dev"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cfg, shouldExit, err := Parse(tc.args, out)
			require.NoError(t, err)
			assert.True(t, shouldExit)
			assert.Nil(t, cfg)
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown flag", []string{"--this-is-not-a-valid-flag"}, "unknown flag: --this-is-not-a-valid-flag"},
		{"bad log format", []string{"--log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "trace"}, "invalid log-level"},
		{"bad mode", []string{"--mode", "remote"}, `invalid mode "remote"`},
		{"negative workers", []string{"--workers", "-2"}, "workers must not be negative"},
		{"bad duration", []string{"--watch-debounce", "soon"}, "invalid argument"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--build-root", t.TempDir()}, tc.args...)
			cfg, shouldExit, err := Parse(args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.False(t, shouldExit)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantErr)
		})
	}
}
