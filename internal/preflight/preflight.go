// Package preflight holds the environment checks run before the dashboard
// starts: the interpreter must exist, its web framework must be importable,
// and the logs directory must be present.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"smsdash/internal/config"
)

// Sentinel errors returned by the checks; the CLI maps them to install hints.
var (
	ErrInterpreterNotFound = errors.New("interpreter not found")
	ErrDependencyMissing   = errors.New("dependency missing")
)

// Interpreter is a resolved interpreter binary.
type Interpreter struct {
	Command string // as configured, used to spawn the app
	Path    string // absolute path from PATH lookup
	Version string
}

// Checker runs the checks against a Runner.
type Checker struct {
	runner     Runner
	interp     config.InterpreterConfig
	dependency config.DependencyConfig
}

// NewChecker returns a Checker for the configured interpreter and dependency.
func NewChecker(runner Runner, interp config.InterpreterConfig, dependency config.DependencyConfig) *Checker {
	return &Checker{
		runner:     runner,
		interp:     interp,
		dependency: dependency,
	}
}

// CheckInterpreter resolves the interpreter on PATH and asks it for its
// version.
func (c *Checker) CheckInterpreter(ctx context.Context) (Interpreter, error) {
	command := c.interp.GetCommand()

	path, err := c.runner.LookPath(command)
	if err != nil {
		return Interpreter{}, fmt.Errorf("%w: %s is not on PATH", ErrInterpreterNotFound, command)
	}

	out, err := c.runner.Run(ctx, path, c.interp.GetVersionArgs()...)
	if err != nil {
		return Interpreter{}, fmt.Errorf("%w: %s failed to report its version: %v", ErrInterpreterNotFound, command, err)
	}

	interp := Interpreter{
		Command: command,
		Path:    path,
		Version: firstLine(out),
	}
	log.Debug().Str("path", path).Str("version", interp.Version).Msg("Interpreter found")
	return interp, nil
}

// CheckDependency only tries to import the configured module; it never installs.
func (c *Checker) CheckDependency(ctx context.Context, interp Interpreter) error {
	module := c.dependency.GetModule()
	if !c.importable(ctx, interp, module) {
		return fmt.Errorf("%w: %s is not installed", ErrDependencyMissing, module)
	}
	return nil
}

// EnsureDependency tries to import the configured module and installs the package
// with pip when it is missing. It retries the import exactly once after installing.
// The returned bool reports whether an install happened.
func (c *Checker) EnsureDependency(ctx context.Context, interp Interpreter) (bool, error) {
	module := c.dependency.GetModule()

	if c.importable(ctx, interp, module) {
		log.Debug().Str("module", module).Msg("Dependency already installed")
		return false, nil
	}

	if c.dependency.SkipInstall {
		return false, fmt.Errorf("%w: %s is not installed and installation is disabled", ErrDependencyMissing, module)
	}

	pkg := c.dependency.GetPackage()
	log.Info().Str("package", pkg).Msg("Installing dependency")

	args := append([]string{"-m", "pip", "install", pkg}, c.dependency.PipArgs...)
	out, err := c.runner.Run(ctx, interp.Path, args...)
	if err != nil {
		log.Error().Str("output", strings.TrimSpace(string(out))).Msg("pip install failed")
		return false, fmt.Errorf("%w: pip install %s: %v", ErrDependencyMissing, pkg, err)
	}

	if !c.importable(ctx, interp, module) {
		return true, fmt.Errorf("%w: %s still cannot be imported after installing %s", ErrDependencyMissing, module, pkg)
	}
	return true, nil
}

func (c *Checker) importable(ctx context.Context, interp Interpreter, module string) bool {
	_, err := c.runner.Run(ctx, interp.Path, "-c", "import "+module)
	return err == nil
}

// EnsureLogsDir creates dir if needed and reports whether it was created.
func EnsureLogsDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("logs path %s exists and is not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("failed to stat logs dir: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create logs dir: %w", err)
	}
	return true, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
