package internal

import (
	"io"
	"log/slog"

	"github.com/starford/katac/internal/picker"
	"github.com/starford/katac/internal/runner"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config       *Config
	configPath   string
	dirs         Dirs
	stateEnabled bool
	verbose      bool
	workDir      string
	dataDir      string
	getenv       func(string) string
	runnerEnv    *runner.Env
	picker       picker.Picker
	stdout       io.Writer
	stderr       io.Writer
	logger       *slog.Logger
}

// WithConfig sets the application configuration, skipping config file
// lookup.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigPath sets the local config file to load.
func WithConfigPath(path string) Option {
	return func(a *application) {
		a.configPath = path
	}
}

// WithDirs sets the katas and days dirs given on the command line.
func WithDirs(dirs Dirs) Option {
	return func(a *application) {
		a.dirs = dirs
	}
}

// WithStateEnabled turns the global state and history on or off.
func WithStateEnabled(enabled bool) Option {
	return func(a *application) {
		a.stateEnabled = enabled
	}
}

// WithVerbose forces debug logging.
func WithVerbose(verbose bool) Option {
	return func(a *application) {
		a.verbose = verbose
	}
}

// WithWorkDir sets the working directory.
func WithWorkDir(dir string) Option {
	return func(a *application) {
		a.workDir = dir
	}
}

// WithDataDir overrides the global state directory.
func WithDataDir(dir string) Option {
	return func(a *application) {
		a.dataDir = dir
	}
}

// WithGetenv replaces the environment lookup.
func WithGetenv(getenv func(string) string) Option {
	return func(a *application) {
		a.getenv = getenv
	}
}

// WithRunnerEnv replaces host detection for runners.
func WithRunnerEnv(env runner.Env) Option {
	return func(a *application) {
		a.runnerEnv = &env
	}
}

// WithPicker sets the interactive kata picker.
func WithPicker(p picker.Picker) Option {
	return func(a *application) {
		a.picker = p
	}
}

// WithOutput sets where user output and logs go.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithLogger sets the logger instead of building one from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}
