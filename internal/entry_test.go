package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/katac/internal/runner"
	"github.com/starford/katac/internal/state"
	pkgconfig "github.com/starford/katac/pkg/config"
)

func openApp(t *testing.T, wd, dataDir string, opts ...Option) (*App, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	base := []Option{
		WithWorkDir(wd),
		WithDataDir(dataDir),
		WithGetenv(func(string) string { return "" }),
		WithRunnerEnv(runner.Env{GOOS: "linux"}),
		WithOutput(out, out),
		WithLogger(quiet),
	}
	app, err := Open(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app, out
}

func TestOpen_RegistersWorkspace(t *testing.T) {
	wd := t.TempDir()
	if err := os.MkdirAll(filepath.Join(wd, "katas", "foo"), 0o755); err != nil {
		t.Fatal(err)
	}
	dataDir := t.TempDir()
	app, _ := openApp(t, wd, dataDir)

	if app.Dirs.KatasDir != filepath.Join(wd, "katas") || app.Dirs.DaysDir != filepath.Join(wd, "days") {
		t.Errorf("dirs = %+v", app.Dirs)
	}
	if _, err := os.Stat(filepath.Join(dataDir, state.HistoryFile)); err != nil {
		t.Errorf("history db missing: %v", err)
	}
	store, err := state.Open(dataDir)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	ws, ok := store.Find(filepath.Base(wd))
	if !ok || len(ws.Katas) != 1 || ws.Katas[0].Name != "foo" {
		t.Errorf("workspace = %+v, ok = %v", ws, ok)
	}
}

func TestOpen_StateDisabled(t *testing.T) {
	wd := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "data")
	app, _ := openApp(t, wd, dataDir, WithStateEnabled(false))
	if app.Service == nil {
		t.Fatal("service not built")
	}
	if _, err := os.Stat(dataDir); !os.IsNotExist(err) {
		t.Errorf("data dir should not be created, stat err = %v", err)
	}
}

func TestOpen_FlagsAndConfig(t *testing.T) {
	wd := t.TempDir()
	writeFile(t, filepath.Join(wd, "katac.toml"), "[katas]\nkatas_dir = \"from-config\"\ndays_dir = \"config-days\"\n")
	app, _ := openApp(t, wd, t.TempDir(), WithDirs(Dirs{DaysDir: "flag-days"}))
	if app.Dirs.KatasDir != filepath.Join(wd, "from-config") {
		t.Errorf("katas dir = %q", app.Dirs.KatasDir)
	}
	if app.Dirs.DaysDir != filepath.Join(wd, "flag-days") {
		t.Errorf("days dir = %q", app.Dirs.DaysDir)
	}
	if filepath.Base(app.ConfigPath) != "katac.toml" {
		t.Errorf("config path = %q", app.ConfigPath)
	}
}

func TestOpen_InitWritesConfig(t *testing.T) {
	wd := t.TempDir()
	app, out := openApp(t, wd, t.TempDir())
	if err := app.Service.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("Created katac.toml")) {
		t.Errorf("output = %q", out.String())
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(filepath.Join(wd, "katac.toml"), cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Katas.KatasDir != "katas" || cfg.Katas.DaysDir != "days" {
		t.Errorf("written config = %+v", cfg)
	}
	for _, d := range []string{"katas", "days"} {
		if info, err := os.Stat(filepath.Join(wd, d)); err != nil || !info.IsDir() {
			t.Errorf("%s dir not created", d)
		}
	}
}
