package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smsdash/internal/config"
	"smsdash/internal/launcher"
	"smsdash/internal/logging"
	"smsdash/internal/preflight"
	"smsdash/internal/server"
)

// cfgFile holds the path to the configuration file specified via command-line flag.
// If empty, the launcher looks for launcher.yaml in the current directory.
var cfgFile string

// appConfig stores the effective configuration: defaults, then the config
// file, then SMSDASH_* environment variables, then flags.
var appConfig config.Config

// rootCmd represents the base command when called without any subcommands.
// Configuration is loaded in PersistentPreRunE so that both the root command
// and check see the same appConfig, and so load errors reach Execute.
var rootCmd = &cobra.Command{
	Use:   "smsdash",
	Short: "Prepare and start the SMS Dashboard",
	Long: `smsdash prepares the machine for the SMS Dashboard and starts it:
  - Checks that the Python interpreter is on PATH
  - Installs Flask with pip when it is missing
  - Creates the logs directory
  - Opens http://localhost:5000 in the browser once the server is starting
  - Runs app.py in the foreground until Ctrl+C`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd.Context())
	},
}

// Execute runs the root command and turns its error into an exit code. A
// dashboard that exited non-zero passes its own status through.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err))
}

// exitCode maps the command error to the process exit status and prints a
// hint for the two preflight failures a user can fix themselves.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *server.ExitError
	if errors.As(err, &exitErr) {
		log.Error().Int("status", exitErr.Code).Msg("Dashboard exited with an error")
		return exitErr.Code
	}

	log.Error().Err(err).Msg("Launcher failed")
	switch {
	case errors.Is(err, preflight.ErrInterpreterNotFound):
		fmt.Fprintln(os.Stderr, "Python is required. Install it from https://www.python.org/downloads/ and tick \"Add python.exe to PATH\".")
	case errors.Is(err, preflight.ErrDependencyMissing):
		fmt.Fprintln(os.Stderr, "Install the dependency manually with: python -m pip install flask")
	}
	return 1
}

// init is called automatically before main() and sets up the CLI flags.
// Flags that mirror config keys are bound into viper so that an explicit
// flag wins over the config file and environment variables.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./launcher.yaml)")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("url", config.DefaultURL, "dashboard URL opened in the browser")
	flags.Bool("no-browser", false, "do not open a browser tab")
	flags.Bool("skip-install", false, "fail instead of running pip when the dependency is missing")

	mustBind("log_level", "log-level")
	mustBind("browser.url", "url")
	mustBind("browser.disabled", "no-browser")
	mustBind("dependency.skip_install", "skip-install")

	rootCmd.AddCommand(checkCmd)
}

// mustBind binds a persistent flag to a viper key. A failure means the flag
// name is misspelled, which is a programming error.
func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the config file.
func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("interpreter.command", d.Interpreter.Command)
	v.SetDefault("interpreter.version_args", d.Interpreter.VersionArgs)
	v.SetDefault("dependency.module", d.Dependency.Module)
	v.SetDefault("dependency.package", d.Dependency.Package)
	v.SetDefault("dependency.pip_args", d.Dependency.PipArgs)
	v.SetDefault("dependency.skip_install", d.Dependency.SkipInstall)
	v.SetDefault("app.script", d.App.Script)
	v.SetDefault("app.work_dir", d.App.WorkDir)
	v.SetDefault("app.env_file", d.App.EnvFile)
	v.SetDefault("app.args", d.App.Args)
	v.SetDefault("logs.dir", d.Logs.Dir)
	v.SetDefault("browser.url", d.Browser.URL)
	v.SetDefault("browser.delay", d.Browser.Delay)
	v.SetDefault("browser.disabled", d.Browser.Disabled)
}

// loadConfig reads the configuration file and unmarshals it into appConfig.
// It supports both an explicit config file path (via --config) and automatic
// discovery of launcher.yaml in the current directory. A missing default
// config file is fine; a missing explicit one is not. Environment variables
// prefixed with SMSDASH_ override file values (SMSDASH_BROWSER_URL for
// browser.url). Logging is configured here, once the level is known.
func loadConfig(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("launcher")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SMSDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configErr := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if configErr != nil && (cfgFile != "" || !errors.As(configErr, &notFound)) {
		return fmt.Errorf("error reading config file: %w", configErr)
	}

	if err := v.Unmarshal(&appConfig); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	logging.Setup(appConfig.LogLevel, os.Stderr)
	if used := v.ConfigFileUsed(); configErr == nil && used != "" {
		log.Debug().Str("file", used).Msg("Loaded configuration")
	} else {
		log.Debug().Msg("No config file found, using defaults")
	}
	return nil
}

// runApp is the main application logic that runs after configuration is
// loaded. It builds a launcher against the real system and blocks until the
// dashboard exits or ctx is cancelled by Ctrl+C.
func runApp(ctx context.Context) error {
	return launcher.New(appConfig, os.Stdout).Launch(ctx)
}
