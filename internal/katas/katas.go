// Package katas resolves kata names to folders, lists and merges kata
// registries, and creates new katas.
package katas

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/katac/internal/apperr"
	"github.com/starford/katac/internal/parser"
	"github.com/starford/katac/internal/runner"
)

// Kata is a named exercise folder.
type Kata struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Meta is the optional description a kata carries in its README.md.
type Meta struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ReadmeFile holds a kata's optional metadata.
const ReadmeFile = "README.md"

// IsPath reports whether name should be taken as a literal path rather
// than a name inside the katas directory.
func IsPath(name string) bool {
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator)
}

// Resolve returns the folder for name: the name itself when it contains a
// path separator, otherwise katasDir/name.
func Resolve(name, katasDir string) string {
	if IsPath(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(katasDir, name)
}

// ValidateName rejects names that cannot denote a kata folder.
func ValidateName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.By(func(v interface{}) error {
			base := filepath.Base(filepath.Clean(v.(string)))
			if base == "." || base == ".." || base == string(filepath.Separator) {
				return errors.New("must name a folder")
			}
			return nil
		}),
	)
}

// List returns every sub-directory of katasDir as a Kata, sorted by name.
// A missing katasDir yields an empty list.
func List(katasDir string) ([]Kata, error) {
	entries, err := os.ReadDir(katasDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("katas: read %s: %w", katasDir, err)
	}
	var out []Kata
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, Kata{Name: e.Name(), Path: filepath.Join(katasDir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Names returns the names of list in order.
func Names(list []Kata) []string {
	out := make([]string, len(list))
	for i, k := range list {
		out[i] = k.Name
	}
	return out
}

// Merge returns local followed by every global kata whose name is not
// already present. Earlier entries win.
func Merge(local, global []Kata) []Kata {
	out := make([]Kata, 0, len(local)+len(global))
	seen := make(map[string]struct{}, len(local)+len(global))
	for _, list := range [][]Kata{local, global} {
		for _, k := range list {
			if _, ok := seen[k.Name]; ok {
				continue
			}
			seen[k.Name] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Find returns the kata called name.
func Find(list []Kata, name string) (Kata, bool) {
	for _, k := range list {
		if k.Name == name {
			return k, true
		}
	}
	return Kata{}, false
}

// Create makes a new kata folder and seeds it with a runner. It fails with
// apperr.ErrAlreadyExists, touching nothing, when the folder exists.
func Create(katasDir, name string, env runner.Env) (Kata, error) {
	if err := ValidateName(name); err != nil {
		return Kata{}, fmt.Errorf("kata name %q: %v: %w", name, err, apperr.ErrInvalidArgument)
	}
	path := Resolve(name, katasDir)
	if _, err := os.Lstat(path); err == nil {
		return Kata{}, fmt.Errorf("kata %s: %w", name, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Kata{}, fmt.Errorf("katas: create %s: %w", path, err)
	}
	if _, err := runner.Seed(path, env); err != nil {
		return Kata{}, err
	}
	return Kata{Name: filepath.Base(path), Path: path}, nil
}

// Describe reads the README.md frontmatter of the kata at path. A kata
// without a README has empty metadata.
func Describe(path string) (Meta, error) {
	data, err := os.ReadFile(filepath.Join(path, ReadmeFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Meta{}, nil
		}
		return Meta{}, fmt.Errorf("katas: read readme: %w", err)
	}
	res, err := parser.Parse(data)
	if err != nil {
		return Meta{}, err
	}
	return Meta{Title: res.Title, Description: res.Description, Tags: res.Tags}, nil
}
