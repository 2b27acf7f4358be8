// Package days resolves the numbered day folders (day1, day2, ...) that
// katas are copied into.
package days

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/katac/internal/apperr"
)

// Prefix is the name prefix of every day folder.
const Prefix = "day"

// Name returns the folder name for day n.
func Name(n int) string {
	return Prefix + strconv.Itoa(n)
}

// Parse extracts the day number from a folder name. It reports false for
// names that are not day<unsigned integer>.
func Parse(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, Prefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 31)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Current returns the highest day number among the directories of daysDir.
// A missing daysDir means no day has been created yet and yields 0 with no
// error. Any other read failure is returned.
func Current(daysDir string) (int, error) {
	entries, err := os.ReadDir(daysDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("days: read %s: %w", daysDir, err)
	}
	current := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, ok := Parse(e.Name()); ok && n > current {
			current = n
		}
	}
	return current, nil
}

// CurrentPath returns the path of the current day folder. The folder does
// not exist when the current day is 0.
func CurrentPath(daysDir string) (string, int, error) {
	n, err := Current(daysDir)
	if err != nil {
		return "", 0, err
	}
	return filepath.Join(daysDir, Name(n)), n, nil
}

// NextPath returns the path of the day folder after the current one.
func NextPath(daysDir string) (string, int, error) {
	n, err := Current(daysDir)
	if err != nil {
		return "", 0, err
	}
	return filepath.Join(daysDir, Name(n+1)), n + 1, nil
}

// KataPath returns where kata lives in the current day.
func KataPath(daysDir, kata string) (string, error) {
	dayPath, _, err := CurrentPath(daysDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dayPath, kata), nil
}

// Katas lists the kata folders of the current day, sorted by name. It
// returns apperr.ErrNoDay when no day folder exists yet.
func Katas(daysDir string) ([]string, error) {
	dayPath, n, err := CurrentPath(daysDir)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.ErrNoDay
	}
	entries, err := os.ReadDir(dayPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNoDay
		}
		return nil, fmt.Errorf("days: read %s: %w", dayPath, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
