// Package watch re-triggers kata runs when files inside a day folder change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/katac/internal/checksum"
)

// DefaultDebounce is how long a kata folder must be quiet before its
// callback fires.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc is called with the kata folder name whose content changed.
type ChangeFunc func(ctx context.Context, kata string)

// Watch watches every kata folder under dayDir until ctx is cancelled.
// Events are grouped per top-level kata folder and debounced; onChange only
// fires when the folder checksum differs from the last one seen. New
// directories are added to the watch list as they appear.
func Watch(ctx context.Context, dayDir string, only []string, logger *slog.Logger, debounce time.Duration, onChange ChangeFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, dayDir); err != nil {
		return err
	}

	allowed := make(map[string]struct{}, len(only))
	for _, k := range only {
		allowed[k] = struct{}{}
	}

	sums := make(map[string]string)
	for _, k := range listKatas(dayDir) {
		if sum, err := checksum.Dir(filepath.Join(dayDir, k)); err == nil {
			sums[k] = sum
		}
	}

	logger.Info("watch: started", slog.String("root", dayDir))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-timerCh:
			for kata := range pending {
				delete(pending, kata)
				sum, err := checksum.Dir(filepath.Join(dayDir, kata))
				if err != nil {
					logger.Debug("watch: checksum failed", slog.String("kata", kata), slog.String("error", err.Error()))
					continue
				}
				if sums[kata] == sum {
					continue
				}
				sums[kata] = sum
				onChange(ctx, kata)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}

			kata := kataOf(dayDir, ev.Name)
			if kata == "" {
				continue
			}
			if _, ok := allowed[kata]; len(allowed) > 0 && !ok {
				continue
			}
			logger.Debug("watch: event", slog.String("kata", kata), slog.String("op", ev.Op.String()))
			pending[kata] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// kataOf returns the top-level folder of path below dayDir, or "" for
// events on dayDir itself or outside it.
func kataOf(dayDir, path string) string {
	rel, err := filepath.Rel(dayDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if strings.HasPrefix(first, ".") {
		return ""
	}
	return first
}

func listKatas(dayDir string) []string {
	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
