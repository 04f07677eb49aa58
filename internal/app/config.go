package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/pkgresolve/internal/engine"
	"github.com/vk/pkgresolve/internal/hcl"
)

// Resolution modes accepted by Config.Mode.
const (
	ModeVirtualized = "virtualized"
	ModeLocal       = "local"
	ModeBoth        = "both"
)

// DefaultWorkDirName is created under the build root when no work
// directory is configured.
const DefaultWorkDirName = ".pkgresolve"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BuildRoot string
	WorkDir   string // virtualized results and the validity cache

	// Specs select the targets to resolve. Empty means every target ("::").
	Specs      []string
	BuildFiles []string
	WatchFiles []string // files fingerprinted per target
	Tags       []string
	Excludes   []string // address regexes

	Mode    string
	Workers int

	LogFormat   string
	LogLevel    string
	MetricsPort int

	Watch         bool
	WatchDebounce time.Duration
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BuildRoot == "" {
		return nil, errors.New("BuildRoot is a required configuration field and cannot be empty")
	}
	root, err := filepath.Abs(cfg.BuildRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid build root %q: %w", cfg.BuildRoot, err)
	}
	cfg.BuildRoot = root

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(root, DefaultWorkDirName)
	} else if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(root, cfg.WorkDir)
	}

	if len(cfg.Specs) == 0 {
		cfg.Specs = []string{"::"}
	}
	if len(cfg.BuildFiles) == 0 {
		cfg.BuildFiles = []string{hcl.DefaultBuildFile}
	}
	if len(cfg.WatchFiles) == 0 {
		cfg.WatchFiles = append([]string(nil), engine.DefaultWatchFiles...)
	}

	switch cfg.Mode {
	case "":
		cfg.Mode = ModeVirtualized
	case ModeVirtualized, ModeLocal, ModeBoth:
	default:
		return nil, fmt.Errorf("invalid mode %q: must be %q, %q or %q", cfg.Mode, ModeVirtualized, ModeLocal, ModeBoth)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return nil, fmt.Errorf("invalid metrics port %d", cfg.MetricsPort)
	}
	if cfg.WatchDebounce < 0 {
		return nil, fmt.Errorf("watch debounce must not be negative, got %s", cfg.WatchDebounce)
	}

	return &cfg, nil
}

// Modes translates Mode into the passes an engine run performs.
func (c *Config) Modes() engine.Modes {
	return engine.Modes{
		Virtualized: c.Mode == ModeVirtualized || c.Mode == ModeBoth,
		Local:       c.Mode == ModeLocal || c.Mode == ModeBoth,
	}
}

// workDirExclude returns a glob covering the work directory when it lies
// inside the build root.
func (c *Config) workDirExclude() (string, bool) {
	rel, err := filepath.Rel(c.BuildRoot, c.WorkDir)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel + "/**", true
}
