package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/pkgresolve/internal/app"
	"github.com/vk/pkgresolve/internal/engine"
	"github.com/vk/pkgresolve/internal/hcl"
	"github.com/vk/pkgresolve/internal/watch"
)

// Version is reported by the version subcommand.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type flags struct {
	buildRoot     string
	workDir       string
	buildFiles    []string
	watchFiles    []string
	tags          []string
	excludes      []string
	mode          string
	workers       int
	logLevel      string
	logFormat     string
	metricsPort   int
	watch         bool
	watchDebounce time.Duration
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		f      flags
		config *app.Config
	)
	cmd := &cobra.Command{
		Use:   "pkgresolve [flags] [SPEC...]",
		Short: "Incrementally resolve third-party dependencies of build targets",
		Long: `pkgresolve resolves the third-party dependencies of the targets selected by
SPEC (for example "web:app", "libs:", "services::" or "web/app^"). Results
that are still valid from a previous run are reused.

With no SPEC every target under the build root is selected.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, specs []string) error {
			cfg, err := f.config(specs)
			if err != nil {
				return err
			}
			config = cfg
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	fs := cmd.Flags()
	fs.StringVar(&f.buildRoot, "build-root", ".", "Directory that target directories are relative to.")
	fs.StringVar(&f.workDir, "workdir", "", "Directory for virtualized results and the result cache (default <build-root>/"+app.DefaultWorkDirName+").")
	fs.StringSliceVar(&f.buildFiles, "build-file", []string{hcl.DefaultBuildFile}, "Descriptor file name or glob looked for in every directory.")
	fs.StringSliceVar(&f.watchFiles, "watch-file", append([]string(nil), engine.DefaultWatchFiles...), "File whose change invalidates a target's resolved dependencies.")
	fs.StringArrayVar(&f.tags, "tag", nil, "Only select targets with (or with -prefix, without) one of the comma separated tags.")
	fs.StringArrayVar(&f.excludes, "exclude", nil, "Regular expression of target addresses to leave out.")
	fs.StringVar(&f.mode, "mode", app.ModeVirtualized, "Resolution mode: 'virtualized', 'local' or 'both'.")
	fs.IntVar(&f.workers, "workers", 0, "Number of concurrent resolutions in virtualized mode. 0 uses the CPU count.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.IntVar(&f.metricsPort, "metrics-port", 0, "Port for the /health and /metrics HTTP server. 0 is disabled.")
	fs.BoolVar(&f.watch, "watch", false, "Keep running and resolve again when watched files change.")
	fs.DurationVar(&f.watchDebounce, "watch-debounce", watch.DefaultDebounce, "Quiet period before a change triggers a new run.")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pkgresolve version %s\n", Version)
		},
	})

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if config == nil {
		// Help or a subcommand ran.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func (f *flags) config(specs []string) (*app.Config, error) {
	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		BuildRoot:     f.buildRoot,
		WorkDir:       f.workDir,
		Specs:         specs,
		BuildFiles:    f.buildFiles,
		WatchFiles:    f.watchFiles,
		Tags:          f.tags,
		Excludes:      f.excludes,
		Mode:          strings.ToLower(f.mode),
		Workers:       f.workers,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		MetricsPort:   f.metricsPort,
		Watch:         f.watch,
		WatchDebounce: f.watchDebounce,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, nil
}
