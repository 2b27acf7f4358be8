// Package internal wires configuration, global state, history and the
// practice service into a ready-to-use application.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/practice"
	"github.com/starford/katac/internal/runner"
	"github.com/starford/katac/internal/state"
	pkgconfig "github.com/starford/katac/pkg/config"
)

// App is an opened katac application.
type App struct {
	Config     *Config
	ConfigPath string
	Dirs       Dirs
	Logger     *slog.Logger
	Service    *practice.Service

	closers []func() error
}

// Close releases the history database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open builds the application with the given options.
func Open(_ context.Context, opts ...Option) (*App, error) {
	app := &application{
		stateEnabled: true,
		getenv:       os.Getenv,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}

	for _, opt := range opts {
		opt(app)
	}

	wd := app.workDir
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
	}

	// Initialize structured text logger on stderr.
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(app.stderr, &slog.HandlerOptions{Level: level}))
	}
	if app.verbose {
		level.Set(slog.LevelDebug)
	}

	cfg, cfgPath := app.config, ""
	if cfg == nil {
		var err error
		if cfg, cfgPath, err = LoadLocal(wd, app.configPath, logger); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if !app.verbose {
		level.Set(cfg.LogLevel)
	}
	slog.SetDefault(logger)

	a := &App{Config: cfg, ConfigPath: cfgPath, Logger: logger}

	var (
		store *state.Store
		log   practice.Log
	)
	if app.stateEnabled {
		dataDir := app.dataDir
		if dataDir == "" {
			var err error
			if dataDir, err = state.DataDir(runtime.GOOS, app.getenv); err != nil {
				return nil, err
			}
		}
		var err error
		if store, err = state.Open(dataDir); err != nil {
			return nil, err
		}
		db, err := history.Open(filepath.Join(dataDir, state.HistoryFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		log = db
	}

	var stored Dirs
	if store != nil {
		if ws, ok := store.Find(filepath.Base(wd)); ok && ws.Path == wd {
			stored = Dirs{KatasDir: ws.KatasDir, DaysDir: ws.DaysDir}
		}
	}
	a.Dirs = ResolveDirs(wd, app.dirs, app.getenv, cfg, stored)

	env := runner.DetectEnv()
	if app.runnerEnv != nil {
		env = *app.runnerEnv
	}

	logger.Debug("app: configuration loaded",
		slog.String("config_file", cfgPath),
		slog.String("katas_dir", a.Dirs.KatasDir),
		slog.String("days_dir", a.Dirs.DaysDir),
		slog.Bool("state", app.stateEnabled),
		slog.String("log_level", cfg.LogLevel.String()))

	a.Service = practice.New(practice.Deps{
		WorkDir:    wd,
		KatasDir:   a.Dirs.KatasDir,
		DaysDir:    a.Dirs.DaysDir,
		Author:     state.Author(runtime.GOOS, app.getenv),
		Random:     cfg.RandomKatas(),
		ConfigPath: cfgPath,
		SaveConfig: func() (string, error) { return saveInitialConfig(wd, cfg, a.Dirs) },
		State:      store,
		Log:        log,
		Env:        env,
		Picker:     app.picker,
		Stdout:     app.stdout,
		Stderr:     app.stderr,
		Logger:     logger,
	})

	if err := a.Service.EnsureWorkspace(); err != nil {
		logger.Warn("app: register workspace failed", slog.String("error", err.Error()))
	}
	return a, nil
}

// saveInitialConfig writes katac.toml into wd with the resolved dirs,
// relative to wd where possible.
func saveInitialConfig(wd string, cfg *Config, dirs Dirs) (string, error) {
	out := *cfg
	out.Katas.KatasDir = relTo(wd, dirs.KatasDir)
	out.Katas.DaysDir = relTo(wd, dirs.DaysDir)
	path := filepath.Join(wd, DefaultConfigFiles[0])
	if err := pkgconfig.Save(path, &out); err != nil {
		return "", err
	}
	return path, nil
}

func relTo(wd, dir string) string {
	rel, err := filepath.Rel(wd, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dir
	}
	return filepath.ToSlash(rel)
}
