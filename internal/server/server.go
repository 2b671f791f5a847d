// Package server runs the dashboard application as a foreground child
// process.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ShutdownGrace is how long the child gets to exit after an interrupt
// before it is killed.
const ShutdownGrace = 5 * time.Second

var ErrScriptNotFound = errors.New("app script not found")

// ExitError reports a non-zero exit status from the dashboard process.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("dashboard exited with status %d", e.Code)
}

// Process describes one run of the dashboard: the interpreter binary, the
// script handed to it and its arguments, the directory it runs in and the
// full environment. A nil Env inherits the launcher's environment. The
// standard streams are passed straight through so the dashboard's own
// console output stays visible.
type Process struct {
	Interpreter string
	Script      string
	Args        []string
	WorkDir     string
	Env         []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// BuildEnv overlays the variables from envFile on base. A missing envFile is
// not an error. PYTHONIOENCODING defaults to utf-8 because the dashboard
// prints non-ASCII text to a console that is often not UTF-8 on Windows.
func BuildEnv(base []string, envFile string) ([]string, error) {
	env := make(map[string]string, len(base))
	order := make([]string, 0, len(base))
	set := func(k, v string) {
		if _, ok := env[k]; !ok {
			order = append(order, k)
		}
		env[k] = v
	}

	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		set(k, v)
	}

	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			for k, v := range vars {
				set(k, v)
			}
			log.Debug().Str("file", envFile).Int("vars", len(vars)).Msg("Loaded env file")
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	}

	if _, ok := env["PYTHONIOENCODING"]; !ok {
		set("PYTHONIOENCODING", "utf-8")
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+env[k])
	}
	return out, nil
}

// scriptPath is where the child will find Script: a relative script is
// looked up from WorkDir, not from the launcher's own directory.
func (p *Process) scriptPath() string {
	if p.WorkDir == "" || filepath.IsAbs(p.Script) {
		return p.Script
	}
	return filepath.Join(p.WorkDir, p.Script)
}

// Run starts the dashboard and blocks until it exits. Cancelling ctx sends
// an interrupt and, after ShutdownGrace, kills the process. A non-zero exit
// is returned as *ExitError.
func (p *Process) Run(ctx context.Context) error {
	if _, err := os.Stat(p.scriptPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrScriptNotFound, p.scriptPath())
		}
		return fmt.Errorf("failed to stat app script: %w", err)
	}

	args := append([]string{p.Script}, p.Args...)
	cmd := exec.CommandContext(ctx, p.Interpreter, args...)
	cmd.Dir = p.WorkDir
	cmd.Env = p.Env
	cmd.Stdin = p.Stdin
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	cmd.Cancel = func() error {
		return interrupt(cmd.Process)
	}
	cmd.WaitDelay = ShutdownGrace

	log.Info().
		Str("interpreter", p.Interpreter).
		Str("script", p.Script).
		Msg("Starting dashboard")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start dashboard: %w", err)
	}

	err := cmd.Wait()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		log.Info().Msg("Dashboard stopped")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("dashboard failed: %w", err)
}
