package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/katas"
	"github.com/starford/katac/internal/state"
)

// EnsureWorkspace registers the current workspace when it is unknown and
// refreshes its kata list otherwise. It is a no-op without global state.
func (s *Service) EnsureWorkspace() error {
	if s.state == nil {
		return nil
	}
	local, err := katas.List(s.katasDir)
	if err != nil {
		return err
	}
	ws, ok := s.state.Find(s.workspace)
	if ok && !s.owns(ws) {
		return nil
	}
	if !ok {
		ws = state.Workspace{
			Name:     s.workspace,
			Path:     s.wd,
			Author:   s.author,
			KatasDir: s.katasDir,
			DaysDir:  s.daysDir,
			Katas:    local,
		}
		if err := s.state.Add(ws); err != nil {
			return err
		}
		s.logger.Debug("practice: workspace registered", slog.String("workspace", ws.Name))
	} else {
		ws.Katas = local
		if err := s.state.Update(ws); err != nil {
			return err
		}
	}
	return s.state.Save()
}

// New creates a kata in the katas dir and records it in the global
// registry.
func (s *Service) New(ctx context.Context, name string) error {
	target := name
	if katas.IsPath(name) && !filepath.IsAbs(name) {
		target = filepath.Join(s.wd, name)
	}
	k, err := katas.Create(s.katasDir, target, s.env)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			fmt.Fprintf(s.out, "Kata %s already exists\n", name)
		}
		return err
	}
	fmt.Fprintf(s.out, "%s created in %s.\n", name, s.display(filepath.Dir(k.Path)))
	s.record(ctx, history.Entry{Kata: k.Name, Action: history.ActionNew, Status: history.StatusOK})

	if s.state == nil {
		return nil
	}
	s.state.AddKata(k)
	if ws, ok := s.state.Find(s.workspace); ok && s.owns(ws) {
		ws.Katas = katas.Merge(ws.Katas, []katas.Kata{k})
		if err := s.state.Update(ws); err != nil {
			return err
		}
	}
	return s.state.Save()
}

// Init prepares the working directory: katas and days dirs, a local config
// file when none exists, and the workspace record.
func (s *Service) Init(_ context.Context) error {
	for _, dir := range []string{s.katasDir, s.daysDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	if s.configPath == "" && s.saveConfig != nil {
		path, err := s.saveConfig()
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		s.configPath = path
		fmt.Fprintf(s.out, "Created %s\n", s.display(path))
	}
	if err := s.EnsureWorkspace(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Workspace %s ready in %s\n", s.workspace, s.wd)
	return nil
}

// Upgrade pulls every workspace that has a remote and rescans the katas of
// all workspaces.
func (s *Service) Upgrade(ctx context.Context) error {
	if err := s.requireState(); err != nil {
		return err
	}
	var failed []error
	workspaces := s.state.Workspaces()
	for _, ws := range workspaces {
		if ws.Remote != "" {
			if err := s.git.Pull(ctx, ws.Path); err != nil {
				fmt.Fprintf(s.out, "Failed to update %s: %v\n", ws.Name, err)
				failed = append(failed, fmt.Errorf("workspace %s: %w", ws.Name, err))
				continue
			}
		}
		list, err := katas.List(workspaceDir(ws, ws.KatasDir, DefaultKatasDir))
		if err != nil {
			failed = append(failed, fmt.Errorf("workspace %s: %w", ws.Name, err))
			continue
		}
		ws.Katas = list
		if err := s.state.Update(ws); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Updated %s (%d katas)\n", ws.Name, len(list))
	}
	if err := s.state.Save(); err != nil {
		return err
	}
	return summarize(failed, len(workspaces), "workspaces")
}

// AddWorkspace registers a workspace. path defaults to the working
// directory and name to the base name of path. A remote is cloned into
// path first.
func (s *Service) AddWorkspace(ctx context.Context, name, path, remote string) error {
	if err := s.requireState(); err != nil {
		return err
	}
	if path == "" {
		path = s.wd
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(s.wd, path)
	}
	path = filepath.Clean(path)
	if name == "" {
		name = filepath.Base(path)
	}
	if s.state.Contains(name) {
		fmt.Fprintf(s.out, "Workspace %s already exists\n", name)
		return fmt.Errorf("workspace %s: %w", name, apperr.ErrAlreadyExists)
	}

	if remote != "" {
		if err := s.git.Clone(ctx, remote, path); err != nil {
			return err
		}
	}

	ws := state.Workspace{
		Name:     name,
		Path:     path,
		Remote:   remote,
		Author:   s.author,
		KatasDir: filepath.Join(path, DefaultKatasDir),
		DaysDir:  filepath.Join(path, DefaultDaysDir),
	}
	list, err := katas.List(ws.KatasDir)
	if err != nil {
		return err
	}
	ws.Katas = list
	if err := s.state.Add(ws); err != nil {
		return err
	}
	if err := s.state.Save(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Workspace %s added\n", name)
	return nil
}

// RemoveWorkspace unregisters a workspace. Its files are left alone.
func (s *Service) RemoveWorkspace(_ context.Context, name string) error {
	if err := s.requireState(); err != nil {
		return err
	}
	if err := s.state.Remove(name); err != nil {
		fmt.Fprintf(s.out, "Workspace %s does not exist\n", name)
		return err
	}
	if err := s.state.Save(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Workspace %s removed\n", name)
	return nil
}

// WorkspaceKatas returns the katas of the named workspace, the current one
// when name is empty.
func (s *Service) WorkspaceKatas(name string) ([]katas.Kata, error) {
	if name == "" || name == s.workspace {
		if s.state != nil {
			if ws, ok := s.state.Find(s.workspace); ok && s.owns(ws) && len(ws.Katas) > 0 {
				return ws.Katas, nil
			}
		}
		return katas.List(s.katasDir)
	}
	if err := s.requireState(); err != nil {
		return nil, err
	}
	ws, ok := s.state.Find(name)
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", name, apperr.ErrNotFound)
	}
	return ws.Katas, nil
}

// owns reports whether ws is the record of the working directory. A record
// with the same name but another path belongs to a different directory and
// is left alone.
func (s *Service) owns(ws state.Workspace) bool {
	if filepath.Clean(ws.Path) == filepath.Clean(s.wd) {
		return true
	}
	s.logger.Warn("practice: workspace name registered for another path",
		slog.String("workspace", ws.Name),
		slog.String("path", ws.Path),
		slog.String("dir", s.wd))
	return false
}

// workspaceDir resolves a workspace directory field against the workspace
// root.
func workspaceDir(ws state.Workspace, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(ws.Path, dir)
}
