package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Defaults mirror what the dashboard application expects: it imports flask,
// writes into ./logs and listens on port 5000.
const (
	DefaultInterpreter  = "python"
	DefaultModule       = "flask"
	DefaultScript       = "app.py"
	DefaultLogsDir      = "logs"
	DefaultURL          = "http://localhost:5000"
	DefaultBrowserDelay = 2 * time.Second
	DefaultLogLevel     = "info"
)

// validate is shared; validator caches struct metadata per instance.
var validate = validator.New()

// Config is the effective launcher configuration, decoded by viper from
// launcher.yaml, SMSDASH_* environment variables and command-line flags.
// Zero values are allowed everywhere: the Get* accessors fall back to the
// defaults above.
type Config struct {
	LogLevel    string            `mapstructure:"log_level"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
	Dependency  DependencyConfig  `mapstructure:"dependency"`
	App         AppConfig         `mapstructure:"app"`
	Logs        LogsConfig        `mapstructure:"logs"`
	Browser     BrowserConfig     `mapstructure:"browser"`
}

// InterpreterConfig names the interpreter that runs the dashboard.
// Command is looked up on PATH; VersionArgs is what proves it actually runs
// (the Windows store alias for python resolves on PATH but fails to start).
type InterpreterConfig struct {
	Command     string   `mapstructure:"command"`
	VersionArgs []string `mapstructure:"version_args"`
}

// DependencyConfig describes the single package the dashboard imports.
// Module and Package differ for packages like PyYAML (imported as yaml).
// SkipInstall turns a missing module into an error instead of a pip install.
type DependencyConfig struct {
	Module      string   `mapstructure:"module"`  // name used for the import check
	Package     string   `mapstructure:"package"` // name passed to pip install
	PipArgs     []string `mapstructure:"pip_args"`
	SkipInstall bool     `mapstructure:"skip_install"`
}

// AppConfig locates the dashboard. WorkDir is the directory the dashboard
// runs in; relative Script, EnvFile and logs paths are resolved against it.
// Args are appended after the script on the interpreter's command line.
type AppConfig struct {
	Script  string   `mapstructure:"script"`
	WorkDir string   `mapstructure:"work_dir"`
	EnvFile string   `mapstructure:"env_file"`
	Args    []string `mapstructure:"args"`
}

// LogsConfig is the directory the dashboard writes its send logs into.
type LogsConfig struct {
	Dir string `mapstructure:"dir"`
}

// BrowserConfig controls the browser tab opened while the dashboard starts.
// Delay gives the server time to bind its port before the page loads.
type BrowserConfig struct {
	URL      string `mapstructure:"url"`
	Delay    string `mapstructure:"delay"` // parsed as duration
	Disabled bool   `mapstructure:"disabled"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Interpreter: InterpreterConfig{
			Command:     DefaultInterpreter,
			VersionArgs: []string{"--version"},
		},
		Dependency: DependencyConfig{
			Module:  DefaultModule,
			Package: DefaultModule,
		},
		App: AppConfig{
			Script:  DefaultScript,
			WorkDir: ".",
			EnvFile: ".env",
		},
		Logs: LogsConfig{
			Dir: DefaultLogsDir,
		},
		Browser: BrowserConfig{
			URL:   DefaultURL,
			Delay: DefaultBrowserDelay.String(),
		},
	}
}

// parseDurationWithDefault parses value as a duration, falling back to def
// when the value is empty or unparsable. key is only used for the warning.
func parseDurationWithDefault(value string, def time.Duration, key string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().
			Str("key", key).
			Str("value", value).
			Dur("default", def).
			Msg("Invalid duration in config, using default")
		return def
	}
	return d
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}

// GetCommand returns the interpreter command, defaulting to python.
func (i InterpreterConfig) GetCommand() string {
	return orDefault(i.Command, DefaultInterpreter)
}

// GetVersionArgs returns the arguments used to query the interpreter version.
func (i InterpreterConfig) GetVersionArgs() []string {
	if len(i.VersionArgs) == 0 {
		return []string{"--version"}
	}
	return i.VersionArgs
}

// GetModule returns the module name checked with an import, defaulting to flask.
func (d DependencyConfig) GetModule() string {
	return orDefault(d.Module, DefaultModule)
}

// GetPackage returns the pip package name, defaulting to the module name.
func (d DependencyConfig) GetPackage() string {
	return orDefault(d.Package, d.GetModule())
}

// GetScript returns the dashboard entry point, defaulting to app.py.
func (a AppConfig) GetScript() string {
	return orDefault(a.Script, DefaultScript)
}

// GetWorkDir returns the dashboard's working directory, defaulting to the
// current directory.
func (a AppConfig) GetWorkDir() string {
	return orDefault(a.WorkDir, ".")
}

// ResolvePath joins a relative path onto the working directory. Absolute
// paths and the empty string are returned untouched.
func (a AppConfig) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.GetWorkDir(), p)
}

// GetDir returns the logs directory, defaulting to logs.
func (l LogsConfig) GetDir() string {
	return orDefault(l.Dir, DefaultLogsDir)
}

// GetURL returns the dashboard URL, defaulting to http://localhost:5000.
func (b BrowserConfig) GetURL() string {
	return orDefault(b.URL, DefaultURL)
}

// GetDelay parses Delay, falling back to two seconds when it is empty or
// invalid. A negative value is returned as is so Validate can reject it.
func (b BrowserConfig) GetDelay() time.Duration {
	return parseDurationWithDefault(b.Delay, DefaultBrowserDelay, "browser.delay")
}

// validatedConfig holds the defaulted values that Validate checks, so the
// rules apply to what the launcher will actually use.
type validatedConfig struct {
	Interpreter string        `validate:"required"`
	Script      string        `validate:"required"`
	URL         string        `validate:"required,http_url"`
	Delay       time.Duration `validate:"min=0"`
	LogLevel    string        `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

// Validate checks the effective (defaulted) values.
func (c Config) Validate() error {
	v := validatedConfig{
		Interpreter: c.Interpreter.GetCommand(),
		Script:      c.App.GetScript(),
		URL:         c.Browser.GetURL(),
		Delay:       c.Browser.GetDelay(),
		LogLevel:    strings.ToLower(strings.TrimSpace(c.LogLevel)),
	}
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s fails %q (value %v)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %w", err)
}
