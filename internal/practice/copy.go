package practice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/checksum"
	"github.com/starford/katac/internal/days"
	"github.com/starford/katac/internal/history"
	"github.com/starford/katac/internal/katas"
	"github.com/starford/katac/internal/runner"
	"github.com/starford/katac/internal/selection"
	"github.com/starford/katac/internal/storage"
)

// PickerTitle is shown above the interactive kata list.
const PickerTitle = "Choose the katas you want:"

// Copy copies every named kata into the next day folder. The day is
// computed once, so all katas of one call land in the same folder, which
// is only created once a kata has been found. Failures are reported and
// the remaining katas are still copied.
func (s *Service) Copy(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("no katas given: %w", apperr.ErrInvalidArgument)
	}
	_, day, err := days.NextPath(s.daysDir)
	if err != nil {
		return err
	}
	dayName := days.Name(day)

	registry, err := s.Katas()
	if err != nil {
		return err
	}

	var (
		dst    storage.Provider
		failed []error
	)
	for _, name := range names {
		if err := katas.ValidateName(name); err != nil {
			fmt.Fprintf(s.out, "Kata %s does not exist\n", name)
			failed = append(failed, fmt.Errorf("kata %q: %v: %w", name, err, apperr.ErrInvalidArgument))
			continue
		}
		src, ok := s.resolve(name, registry)
		if !ok {
			fmt.Fprintf(s.out, "Kata %s does not exist\n", name)
			failed = append(failed, fmt.Errorf("kata %s: %w", name, apperr.ErrNotFound))
			continue
		}

		if dst == nil {
			fsys, err := storage.NewFS(s.daysDir)
			if err != nil {
				return err
			}
			if err := fsys.MkdirAll(dayName); err != nil {
				return err
			}
			dst = fsys
		}

		kata := filepath.Base(src)
		path, err := dst.CopyDir(src, dayName)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			failed = append(failed, fmt.Errorf("kata %s: %w", name, err))
			s.record(ctx, history.Entry{Day: day, Kata: kata, Action: history.ActionCopy, Status: history.StatusFailed, Detail: err.Error()})
			continue
		}
		fmt.Fprintf(s.out, "Copying %s to %s...\n", name, dayName)

		if runner.Select(path, "", s.env).Kind == runner.None {
			if _, err := runner.Seed(path, s.env); err != nil {
				s.logger.Warn("practice: seed runner failed", slog.String("path", path), slog.String("error", err.Error()))
			}
		}

		sum, err := checksum.Dir(path)
		if err != nil {
			s.logger.Debug("practice: checksum failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		s.record(ctx, history.Entry{Day: day, Kata: kata, Action: history.ActionCopy, Status: history.StatusOK, Checksum: sum})
	}
	return summarize(failed, len(names), "katas")
}

// resolve finds the folder for name: a literal path when name contains a
// separator, then the katas dir, then the kata registry.
func (s *Service) resolve(name string, registry []katas.Kata) (string, bool) {
	if katas.IsPath(name) {
		p := katas.Resolve(name, s.katasDir)
		if !filepath.IsAbs(p) {
			p = filepath.Join(s.wd, p)
		}
		return p, isDir(p)
	}
	if p := katas.Resolve(name, s.katasDir); isDir(p) {
		return p, true
	}
	if k, ok := katas.Find(registry, name); ok && isDir(k.Path) {
		return k.Path, true
	}
	return "", false
}

// RandomNames picks n distinct katas from the configured random list, or
// from the katas dir when the list is empty.
func (s *Service) RandomNames(n int) ([]string, error) {
	candidates := s.random
	if len(candidates) == 0 {
		local, err := katas.List(s.katasDir)
		if err != nil {
			return nil, err
		}
		candidates = katas.Names(local)
	}
	return selection.Random(candidates, n, s.rng)
}

// Random copies n random katas into the next day.
func (s *Service) Random(ctx context.Context, n int) error {
	names, err := s.RandomNames(n)
	if err != nil {
		return err
	}
	return s.Copy(ctx, names)
}

// Start lets the user pick katas interactively and copies them.
func (s *Service) Start(ctx context.Context) error {
	registry, err := s.Katas()
	if err != nil {
		return err
	}
	if len(registry) == 0 {
		return fmt.Errorf("no katas found in %s: %w", s.display(s.katasDir), apperr.ErrEmpty)
	}
	chosen, err := s.picker.Select(ctx, PickerTitle, katas.Names(registry))
	if err != nil {
		return err
	}
	if len(chosen) == 0 {
		fmt.Fprintln(s.out, "No katas selected, use the SPACE key to select katas")
		return fmt.Errorf("no katas selected: %w", apperr.ErrEmpty)
	}
	return s.Copy(ctx, chosen)
}
