// Package testutil provides shared test helpers for kata fixtures, state
// and the history database.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/state"
	"github.com/starford/katac/internal/storage"
)

// Makefile returns a Makefile whose run target prints msg.
func Makefile(msg string) string {
	return "run:\n\t@echo \"" + msg + "\"\n"
}

// Katas creates a katas directory under root holding foo, bar and baz.
// foo and bar carry a Makefile, baz only a run.sh.
func Katas(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "katas")
	WriteTree(t, dir, map[string]string{
		"foo/Makefile":  Makefile("foo"),
		"foo/main.go":   "package main\n",
		"bar/Makefile":  Makefile("bar"),
		"bar/README.md": "---\ntitle: Bar kata\ntags: [strings, easy]\n---\n\nReverse a string.\n",
		"baz/run.sh":    "#!/bin/sh\necho baz\n",
	})
	if err := os.Chmod(filepath.Join(dir, "baz", "run.sh"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

// WriteTree writes files (slash separated paths relative to root).
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	fsys, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		if err := fsys.Write(filepath.FromSlash(rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestDB creates a temporary history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "katac-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestState opens an empty state store in a temporary data dir.
func TestState(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}
