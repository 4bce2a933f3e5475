// Package fs provides the filesystem abstraction used by tree harnesses.
//
// The main types are:
//   - [FS]: interface for the filesystem operations harnesses perform
//   - [Real]: production implementation using [os] and atomic file writes
//   - [Chaos]: testing implementation that injects random failures
//
// Harnesses only ever touch the filesystem through [FS], so a run can be
// pointed at a fault-injecting wrapper without changing harness code.
package fs

import (
	"os"
)

// FS defines the filesystem operations a harness may perform.
//
// Paths use OS semantics (like the os package and path/filepath), not the
// slash-separated paths used by the standard library io/fs package.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic replaces path with data. Readers observe either the
	// old content or the new content, never a partial file.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// ReadDir reads a directory and returns its entries sorted by name.
	// See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// Mkdir creates a single directory. See [os.Mkdir].
	Mkdir(path string, perm os.FileMode) error

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Lstat returns file info without following a final symlink.
	// See [os.Lstat].
	Lstat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error

	// RemoveAll deletes a path and any children. See [os.RemoveAll].
	// No error if path doesn't exist.
	RemoveAll(path string) error
}
