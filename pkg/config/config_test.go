package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string   `toml:"name" json:"name" yaml:"name"`
	Items []string `toml:"items" json:"items" yaml:"items"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, file := range []string{"c.toml", "c.json", "c.yaml", "c.yml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			in := sample{Name: "katac", Items: []string{"foo", "bar"}}
			if err := Save(path, &in); err != nil {
				t.Fatalf("Save: %v", err)
			}
			var out sample
			if err := Load(path, &out); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if out.Name != in.Name || len(out.Items) != 2 || out.Items[1] != "bar" {
				t.Errorf("got %+v, want %+v", out, in)
			}
		})
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	if err := os.WriteFile(path, []byte(`{"items":["x"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := Load(path, &out); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_YAMLExpandsEnv(t *testing.T) {
	t.Setenv("KATAC_TEST_NAME", "from-env")
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: ${KATAC_TEST_NAME}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := Load(path, &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Name != "from-env" {
		t.Errorf("name = %q, want %q", out.Name, "from-env")
	}
}

func TestFormatOf(t *testing.T) {
	if f, err := FormatOf("a/katac.YML"); err != nil || f != YAML {
		t.Errorf("FormatOf yml = %q, %v", f, err)
	}
	if _, err := FormatOf("katac.ini"); err == nil {
		t.Error("expected error for .ini")
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Find(dir, "katac.toml"); ok {
		t.Fatal("found a file in an empty dir")
	}
	if err := os.Mkdir(filepath.Join(dir, "katac.toml"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "katac.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, ok := Find(dir, "katac.toml", "katac.json")
	if !ok || got != filepath.Join(dir, "katac.json") {
		t.Errorf("Find = %q, %v", got, ok)
	}
}
