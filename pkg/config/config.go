// Package config loads and saves configuration files. The format follows the
// file extension: TOML, JSON or YAML (with environment variable expansion).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Format is a supported file format.
type Format string

const (
	TOML Format = "toml"
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf returns the format implied by filename's extension.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		return TOML, nil
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension: %s", filename)
	}
}

// Load loads configuration from filename into target and validates it.
func Load[T any](filename string, target *T) error {
	format, err := FormatOf(filename)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := Decode(format, data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// Decode unmarshals data in the given format. YAML content gets ${VAR}
// expansion first.
func Decode[T any](format Format, data []byte, target *T) error {
	switch format {
	case TOML:
		_, err := toml.Decode(string(data), target)
		return err
	case JSON:
		return json.Unmarshal(data, target)
	case YAML:
		return yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target)
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
}

// Encode marshals v in the given format.
func Encode[T any](format Format, v *T) ([]byte, error) {
	switch format {
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case JSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case YAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

// Save writes v to filename in the format implied by its extension.
func Save[T any](filename string, v *T) error {
	format, err := FormatOf(filename)
	if err != nil {
		return err
	}
	data, err := Encode(format, v)
	if err != nil {
		return fmt.Errorf("failed to encode config file %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}
	return nil
}

// Find returns the first of names that exists in dir.
func Find(dir string, names ...string) (string, bool) {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
