// Package command resolves a target by running a configured command, such
// as a package manager install, inside its results directory.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/pkgresolve/internal/ctxlog"
	"github.com/vk/pkgresolve/internal/registry"
	"github.com/vk/pkgresolve/internal/target"
	"github.com/vk/pkgresolve/modules/copysources"
)

// Type is the target type this module registers for.
const Type = "command"

// maxOutputTail bounds how much command output is kept in an error.
const maxOutputTail = 2048

// ErrNoCommand is returned for targets without a `command` kwarg.
var ErrNoCommand = errors.New("target does not declare a command")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the strategy with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, &Strategy{})
}

// Strategy prepares the results directory like copysources and then runs
// the target's command in it. Targets set:
//
//	command              = ["yarn", "install"]
//	env                  = { NODE_ENV = "production" }
//	frozen_lockfile_flag = "--frozen-lockfile"   # added when lock files must not change
//	skip_optional_flag   = "--ignore-optional"   # added when optional packages are skipped
type Strategy struct {
	// Environ returns the base environment. Nil means os.Environ.
	Environ func() []string
}

func (s *Strategy) Name() string { return "command" }

func (s *Strategy) ResolveTarget(ctx context.Context, req *registry.Request) error {
	logger := ctxlog.FromContext(ctx).With("target", req.Target.Address)

	argv, err := Args(req.Target, req.Mode)
	if err != nil {
		return err
	}
	if err := (&copysources.Strategy{}).ResolveTarget(ctx, req); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = req.ResultsDir
	cmd.Env = s.environ(req)

	logger.Info("Running resolve command.", "command", strings.Join(argv, " "), "dir", req.ResultsDir)
	out, err := cmd.CombinedOutput()
	logger.Debug("Resolve command finished.", "output_bytes", len(out))
	if err != nil {
		return fmt.Errorf("command %q failed: %w: %s", strings.Join(argv, " "), err, tail(out))
	}
	return nil
}

// Args returns the command line for t under mode.
func Args(t *target.Target, mode registry.Mode) ([]string, error) {
	argv, ok := t.StringsKwarg("command")
	if !ok || len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("%s: %w", t.Address, ErrNoCommand)
	}
	argv = append([]string(nil), argv...)
	if flag, ok := t.StringKwarg("frozen_lockfile_flag"); ok && mode.FrozenLockfile {
		argv = append(argv, flag)
	}
	if flag, ok := t.StringKwarg("skip_optional_flag"); ok && !mode.InstallOptional {
		argv = append(argv, flag)
	}
	return argv, nil
}

func (s *Strategy) environ(req *registry.Request) []string {
	base := os.Environ
	if s.Environ != nil {
		base = s.Environ
	}
	env := append([]string(nil), base()...)

	if extra, ok := req.Target.StringMapKwarg("env"); ok {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+extra[k])
		}
	}

	return append(env,
		"PKGRESOLVE_TARGET="+req.Target.Address.Spec(),
		"PKGRESOLVE_RESULTS_DIR="+req.ResultsDir,
		"PKGRESOLVE_BUILD_ROOT="+req.BuildRoot,
		"PKGRESOLVE_RESOLVE_LOCALLY="+strconv.FormatBool(req.Mode.ResolveLocally),
	)
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxOutputTail {
		s = "..." + s[len(s)-maxOutputTail:]
	}
	return s
}
