// Package launcher wires the preflight checks, the delayed browser open and
// the foreground dashboard process together.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"smsdash/internal/browser"
	"smsdash/internal/config"
	"smsdash/internal/display"
	"smsdash/internal/preflight"
	"smsdash/internal/scheduler"
	"smsdash/internal/server"
	"smsdash/tasks"
)

// Title is the heading of the startup banner.
const Title = "SMS Dashboard"

// Checker is the subset of preflight.Checker the launcher needs.
type Checker interface {
	CheckInterpreter(ctx context.Context) (preflight.Interpreter, error)
	CheckDependency(ctx context.Context, interp preflight.Interpreter) error
	EnsureDependency(ctx context.Context, interp preflight.Interpreter) (bool, error)
}

// Launcher runs the startup sequence for the dashboard. It holds the
// effective configuration and the collaborators that touch the system: the
// preflight checker, the browser opener and the function that runs the
// server process. New wires the real implementations.
type Launcher struct {
	cfg     config.Config
	checker Checker
	opener  browser.Opener
	out     io.Writer

	// serve runs the dashboard; replaced in tests.
	serve func(ctx context.Context, p *server.Process) error
}

// New builds a Launcher that talks to the real system.
func New(cfg config.Config, out io.Writer) *Launcher {
	runner := preflight.NewExecRunner(cfg.App.GetWorkDir())
	return &Launcher{
		cfg:     cfg,
		checker: preflight.NewChecker(runner, cfg.Interpreter, cfg.Dependency),
		opener:  browser.NewSystemOpener(),
		out:     out,
		serve: func(ctx context.Context, p *server.Process) error {
			return p.Run(ctx)
		},
	}
}

// Launch performs every step in order and blocks while the dashboard runs:
//  1. Validates the configuration and prints the banner
//  2. Checks the interpreter and its dependency, installing it if allowed
//  3. Creates the logs directory
//  4. Arms the browser timer unless the browser is disabled
//  5. Runs the dashboard in the foreground
//
// The browser timer is cancelled as soon as the dashboard exits.
func (l *Launcher) Launch(ctx context.Context) error {
	if err := l.cfg.Validate(); err != nil {
		return err
	}

	url := l.cfg.Browser.GetURL()
	fmt.Fprintln(l.out, display.Banner(Title, url))

	interp, err := l.checker.CheckInterpreter(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("version", interp.Version).Msg("Interpreter OK")

	installed, err := l.checker.EnsureDependency(ctx, interp)
	if err != nil {
		return err
	}
	log.Info().
		Str("module", l.cfg.Dependency.GetModule()).
		Bool("installed_now", installed).
		Msg("Dependency OK")

	logsDir := l.cfg.App.ResolvePath(l.cfg.Logs.GetDir())
	created, err := preflight.EnsureLogsDir(logsDir)
	if err != nil {
		return err
	}
	log.Info().Str("dir", logsDir).Bool("created", created).Msg("Logs directory OK")

	proc, err := l.process(interp)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	if !l.cfg.Browser.Disabled {
		delay := l.cfg.Browser.GetDelay()
		log.Debug().Dur("delay", delay).Str("url", url).Msg("Browser will open shortly")
		sched.ScheduleTask(tasks.NewOpenBrowserTask(url, l.opener), delay)
	}
	if sched.HasTasks() {
		sched.Start(ctx)
		defer func() {
			sched.Stop()
			sched.Wait()
		}()
	}

	return l.serve(ctx, proc)
}

// process describes the dashboard child. The script and working directory
// are made absolute because the child runs inside WorkDir: a script path
// relative to the launcher's directory would be resolved a second time there.
func (l *Launcher) process(interp preflight.Interpreter) (*server.Process, error) {
	env, err := server.BuildEnv(os.Environ(), l.cfg.App.ResolvePath(l.cfg.App.EnvFile))
	if err != nil {
		return nil, err
	}

	workDir, err := filepath.Abs(l.cfg.App.GetWorkDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work dir: %w", err)
	}
	script := l.cfg.App.GetScript()
	if !filepath.IsAbs(script) {
		script = filepath.Join(workDir, script)
	}

	return &server.Process{
		Interpreter: interp.Path,
		Script:      script,
		Args:        l.cfg.App.Args,
		WorkDir:     workDir,
		Env:         env,
		Stdin:       os.Stdin,
		Stdout:      l.out,
		Stderr:      os.Stderr,
	}, nil
}

// Check runs the preflight checks without changing the machine: the
// dependency is only import-checked, never installed, and the logs directory is only
// inspected. The error is the first failure, if any.
func (l *Launcher) Check(ctx context.Context) ([]display.CheckResult, error) {
	var results []display.CheckResult
	var firstErr error
	record := func(name string, err error, detail string) {
		r := display.CheckResult{Name: name, OK: err == nil, Detail: detail}
		if err != nil {
			r.Detail = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		}
		results = append(results, r)
	}

	record("config", l.cfg.Validate(), "")

	interp, err := l.checker.CheckInterpreter(ctx)
	record("interpreter", err, interp.Version)
	if err == nil {
		record(l.cfg.Dependency.GetModule(), l.checker.CheckDependency(ctx, interp), "present")
	}

	script := l.cfg.App.ResolvePath(l.cfg.App.GetScript())
	var scriptErr error
	if _, err := os.Stat(script); err != nil {
		scriptErr = fmt.Errorf("%w: %s", server.ErrScriptNotFound, script)
	}
	record("app", scriptErr, script)

	logsDir := l.cfg.App.ResolvePath(l.cfg.Logs.GetDir())
	var logsErr error
	detail := logsDir
	if info, err := os.Stat(logsDir); err != nil {
		detail += " (will be created)"
	} else if !info.IsDir() {
		logsErr = fmt.Errorf("logs path %s exists and is not a directory", logsDir)
	}
	record("logs", logsErr, detail)

	return results, firstErr
}
