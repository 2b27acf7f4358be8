// Package state persists the global katac state: registered workspaces and
// the global kata registry. Both files are JSON, rewritten wholesale on each
// Save.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/katas"
	"github.com/starford/katac/internal/storage"
)

// Workspace is a named practice root with its own katas and days dirs.
type Workspace struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"`
	Remote   string       `json:"remote,omitempty"`
	Author   string       `json:"author"`
	KatasDir string       `json:"katas_dir"`
	DaysDir  string       `json:"days_dir"`
	Katas    []katas.Kata `json:"katas"`
}

// Validate validates the workspace record.
func (w *Workspace) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Name, validation.Required, validation.By(noSeparator)),
		validation.Field(&w.Path, validation.Required),
	)
}

func noSeparator(v interface{}) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) {
		return errors.New("must not contain path separators")
	}
	return nil
}

type workspacesFile struct {
	Workspaces []Workspace `json:"workspaces"`
}

// Store holds the loaded state and writes it back through a storage
// provider rooted at the data dir.
type Store struct {
	fs         storage.Provider
	workspaces []Workspace
	katas      []katas.Kata
}

// Open loads the state files under dir, creating dir when needed. Missing
// files are empty state; unparsable files are an error.
func Open(dir string) (*Store, error) {
	fsys, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	s := &Store{fs: fsys}

	var wf workspacesFile
	if err := s.readJSON(WorkspacesFile, &wf); err != nil {
		return nil, err
	}
	s.workspaces = wf.Workspaces

	if err := s.readJSON(GlobalKatasFile, &s.katas); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.fs.Root() }

func (s *Store) readJSON(name string, v any) error {
	data, err := s.fs.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("state: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("state: parse %s: %w", filepath.Join(s.fs.Root(), name), err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", name, err)
	}
	return s.fs.Write(name, append(data, '\n'), 0o644)
}

// Save writes both state files.
func (s *Store) Save() error {
	ws := s.workspaces
	if ws == nil {
		ws = []Workspace{}
	}
	if err := s.writeJSON(WorkspacesFile, workspacesFile{Workspaces: ws}); err != nil {
		return err
	}
	ks := s.katas
	if ks == nil {
		ks = []katas.Kata{}
	}
	return s.writeJSON(GlobalKatasFile, ks)
}

// Workspaces returns a copy of the registered workspaces.
func (s *Store) Workspaces() []Workspace {
	return append([]Workspace(nil), s.workspaces...)
}

// Find returns the workspace called name.
func (s *Store) Find(name string) (Workspace, bool) {
	for _, w := range s.workspaces {
		if w.Name == name {
			return w, true
		}
	}
	return Workspace{}, false
}

// Contains reports whether a workspace called name is registered.
func (s *Store) Contains(name string) bool {
	_, ok := s.Find(name)
	return ok
}

// Add registers ws. Names are unique.
func (s *Store) Add(ws Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("workspace %q: %v: %w", ws.Name, err, apperr.ErrInvalidArgument)
	}
	if s.Contains(ws.Name) {
		return fmt.Errorf("workspace %s: %w", ws.Name, apperr.ErrAlreadyExists)
	}
	s.workspaces = append(s.workspaces, ws)
	return nil
}

// Update replaces the workspace with the same name.
func (s *Store) Update(ws Workspace) error {
	for i := range s.workspaces {
		if s.workspaces[i].Name == ws.Name {
			s.workspaces[i] = ws
			return nil
		}
	}
	return fmt.Errorf("workspace %s: %w", ws.Name, apperr.ErrNotFound)
}

// Remove unregisters the workspace called name.
func (s *Store) Remove(name string) error {
	for i, w := range s.workspaces {
		if w.Name == name {
			s.workspaces = append(s.workspaces[:i], s.workspaces[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("workspace %s: %w", name, apperr.ErrNotFound)
}

// AddKata records k in the global kata registry, replacing an entry with
// the same name.
func (s *Store) AddKata(k katas.Kata) {
	for i := range s.katas {
		if s.katas[i].Name == k.Name {
			s.katas[i] = k
			return
		}
	}
	s.katas = append(s.katas, k)
}

// Katas returns the global kata registry.
func (s *Store) Katas() []katas.Kata {
	return append([]katas.Kata(nil), s.katas...)
}

// AllKatas returns the global registry followed by every workspace's
// recorded katas, deduplicated by name.
func (s *Store) AllKatas() []katas.Kata {
	out := s.Katas()
	for _, w := range s.workspaces {
		out = katas.Merge(out, w.Katas)
	}
	return katas.Merge(out, nil)
}
