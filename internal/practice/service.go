// Package practice coordinates the katac commands: copying katas into the
// next day, running them, picking random ones and managing workspaces.
package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/days"
	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/katas"
	"github.com/starford/katac/internal/picker"
	"github.com/starford/katac/internal/runner"
	"github.com/starford/katac/internal/state"
)

// Built-in directory names, relative to a workspace root.
const (
	DefaultKatasDir = "katas"
	DefaultDaysDir  = "days"
)

// Log is the practice history as seen by the service.
type Log interface {
	history.Recorder
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Stats(ctx context.Context) ([]history.KataStats, error)
}

// Deps holds everything the service works with. State and Log are nil when
// global state is disabled.
type Deps struct {
	WorkDir  string
	KatasDir string
	DaysDir  string
	Author   string

	// Random is the configured list of random candidates.
	Random []string
	// ConfigPath is the loaded local config file, empty when none exists.
	ConfigPath string
	// SaveConfig writes a fresh local config file and returns its path.
	SaveConfig func() (string, error)

	State  *state.Store
	Log    Log
	Env    runner.Env
	Rand   *rand.Rand
	Git    Git
	Picker picker.Picker

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Service implements the katac operations.
type Service struct {
	wd         string
	katasDir   string
	daysDir    string
	author     string
	workspace  string
	session    string
	random     []string
	configPath string
	saveConfig func() (string, error)

	state  *state.Store
	log    Log
	env    runner.Env
	rng    *rand.Rand
	git    Git
	picker picker.Picker

	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// New creates a new practice service.
func New(d Deps) *Service {
	s := &Service{
		wd:         d.WorkDir,
		katasDir:   d.KatasDir,
		daysDir:    d.DaysDir,
		author:     d.Author,
		workspace:  filepath.Base(d.WorkDir),
		session:    uuid.NewString(),
		random:     d.Random,
		configPath: d.ConfigPath,
		saveConfig: d.SaveConfig,
		state:      d.State,
		log:        d.Log,
		env:        d.Env,
		rng:        d.Rand,
		git:        d.Git,
		picker:     d.Picker,
		out:        d.Stdout,
		errOut:     d.Stderr,
		logger:     d.Logger,
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if s.git == nil {
		s.git = &ExecGit{Stdout: s.errOut, Stderr: s.errOut}
	}
	if s.picker == nil {
		s.picker = picker.NewTerminal()
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.errOut == nil {
		s.errOut = os.Stderr
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithOutput returns a copy of the service that prints to w.
func (s *Service) WithOutput(w io.Writer) *Service {
	c := *s
	c.out = w
	c.errOut = w
	return &c
}

// Workspace returns the name of the current workspace.
func (s *Service) Workspace() string { return s.workspace }

// KatasDir returns the resolved katas directory.
func (s *Service) KatasDir() string { return s.katasDir }

// DaysDir returns the resolved days directory.
func (s *Service) DaysDir() string { return s.daysDir }

// CurrentDay returns the current day number, 0 when none exists.
func (s *Service) CurrentDay() (int, error) {
	return days.Current(s.daysDir)
}

// DayKatas lists the katas of the current day.
func (s *Service) DayKatas() ([]string, error) {
	names, err := days.Katas(s.daysDir)
	if err != nil {
		if errors.Is(err, apperr.ErrNoDay) {
			return nil, s.noDay()
		}
		return nil, err
	}
	return names, nil
}

// Katas returns the local katas followed by the global registry.
func (s *Service) Katas() ([]katas.Kata, error) {
	local, err := katas.List(s.katasDir)
	if err != nil {
		return nil, err
	}
	if s.state == nil {
		return local, nil
	}
	return katas.Merge(local, s.state.AllKatas()), nil
}

func (s *Service) noDay() error {
	return fmt.Errorf("no day has been created for the %s workspace: %w", s.workspace, apperr.ErrNoDay)
}

func (s *Service) requireState() error {
	if s.state == nil {
		return fmt.Errorf("global state is disabled: %w", apperr.ErrInvalidArgument)
	}
	return nil
}

func (s *Service) record(ctx context.Context, e history.Entry) {
	if s.log == nil {
		return
	}
	e.Workspace = s.workspace
	e.Session = s.session
	if err := s.log.Record(ctx, e); err != nil {
		s.logger.Warn("practice: record history failed",
			slog.String("kata", e.Kata),
			slog.String("error", err.Error()))
	}
}

// display shortens path relative to the working directory when it lives
// below it.
func (s *Service) display(path string) string {
	rel, err := filepath.Rel(s.wd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func summarize(failed []error, total int, what string) error {
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d %s failed: %w", len(failed), total, what, errors.Join(failed...))
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
