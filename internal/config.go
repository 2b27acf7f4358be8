package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/katac/internal/practice"
	pkgconfig "github.com/starford/katac/pkg/config"
)

// Environment variables read by katac.
const (
	EnvKatasDir   = "KATAS_DIR"
	EnvDaysDir    = "DAYS_DIR"
	EnvConfigFile = "KATAC_CONFIG_FILE"
)

// Built-in directory defaults, relative to the working directory.
const (
	DefaultKatasDir = practice.DefaultKatasDir
	DefaultDaysDir  = practice.DefaultDaysDir
)

// DefaultConfigFiles are looked up in the working directory, in order, when
// no config file is given explicitly.
var DefaultConfigFiles = []string{"katac.toml", "katac.json", "katac.yaml", "katac.yml"}

// Config represents the local (per working directory) configuration.
type Config struct {
	LogLevel slog.Level  `yaml:"log_level" json:"log_level" toml:"log_level"`
	Katas    KatasConfig `yaml:"katas" json:"katas" toml:"katas"`

	// Random is the legacy top-level random list.
	Random []string `yaml:"random,omitempty" json:"random,omitempty" toml:"random,omitempty"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.By(knownLevel)),
		validation.Field(&c.Random, validation.Each(validation.Required)),
	); err != nil {
		return err
	}
	return c.Katas.Validate()
}

func knownLevel(v interface{}) error {
	l, _ := v.(slog.Level)
	if l < slog.LevelDebug || l > slog.LevelError {
		return fmt.Errorf("must be between %s and %s", slog.LevelDebug, slog.LevelError)
	}
	return nil
}

// RandomKatas returns the configured random candidates.
func (c *Config) RandomKatas() []string {
	if len(c.Katas.Random) > 0 {
		return c.Katas.Random
	}
	return c.Random
}

// KatasConfig holds the kata related settings.
type KatasConfig struct {
	Random   []string `yaml:"random,omitempty" json:"random,omitempty" toml:"random,omitempty"`
	KatasDir string   `yaml:"katas_dir,omitempty" json:"katas_dir,omitempty" toml:"katas_dir,omitempty"`
	DaysDir  string   `yaml:"days_dir,omitempty" json:"days_dir,omitempty" toml:"days_dir,omitempty"`
}

// Validate validates the katas configuration.
func (c *KatasConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Random, validation.Each(validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: slog.LevelWarn,
	}
}

// Dirs is a katas/days directory pair.
type Dirs struct {
	KatasDir string
	DaysDir  string
}

// ResolveDirs picks each directory from the first non-empty source: flag,
// environment, config file, stored workspace record, built-in default.
// Relative results are made absolute against wd.
func ResolveDirs(wd string, flags Dirs, getenv func(string) string, cfg *Config, stored Dirs) Dirs {
	var fromCfg Dirs
	if cfg != nil {
		fromCfg = Dirs{KatasDir: cfg.Katas.KatasDir, DaysDir: cfg.Katas.DaysDir}
	}
	return Dirs{
		KatasDir: absDir(wd, firstNonEmpty(flags.KatasDir, getenv(EnvKatasDir), fromCfg.KatasDir, stored.KatasDir, DefaultKatasDir)),
		DaysDir:  absDir(wd, firstNonEmpty(flags.DaysDir, getenv(EnvDaysDir), fromCfg.DaysDir, stored.DaysDir, DefaultDaysDir)),
	}
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

func absDir(wd, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(wd, dir)
}

// LoadLocal loads the local config file. explicit, when set, names the
// file; otherwise the DefaultConfigFiles are looked up in wd. It returns the
// path that was loaded, or "" when defaults are used.
func LoadLocal(wd, explicit string, logger *slog.Logger) (*Config, string, error) {
	cfg := NewDefaultConfig()

	path := explicit
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(wd, path)
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			logger.Debug("config: file not found, using defaults", slog.String("path", path))
			return cfg, "", nil
		}
	} else {
		found, ok := pkgconfig.Find(wd, DefaultConfigFiles...)
		if !ok {
			return cfg, "", nil
		}
		path = found
	}

	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, "", err
	}
	logger.Debug("config: loaded", slog.String("path", path))
	return cfg, path, nil
}
