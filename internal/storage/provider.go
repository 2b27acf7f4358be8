// Package storage defines the file-system abstraction used for day folders
// and state files.
package storage

import "io/fs"

// Provider is the interface for rooted file operations.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Exists reports whether path (relative to root) exists.
	Exists(path string) bool
	// MkdirAll creates dir (relative to root) with any missing parents.
	MkdirAll(dir string) error
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte, perm fs.FileMode) error
	// CopyDir copies src into dstDir (relative to root) and returns the
	// absolute destination path.
	CopyDir(src, dstDir string) (string, error)
}

var _ Provider = (*FS)(nil)
