package fstree

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/calvinalkan/harnesskit/pkg/fs"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// Write materializes the tree. The root must not exist yet.
// On failure the tree may be partially written.
func (t *Tree) Write(fsys fs.FS) error {
	return writeNode(fsys, t.Base, t.Root)
}

// Verify checks that the on-disk state under the root matches the tree
// exactly: every node exists with the right kind and content, and no
// directory contains undeclared entries.
func (t *Tree) Verify(fsys fs.FS) error {
	return verifyNode(fsys, t.Base, t.Root)
}

// Remove deletes the tree, children first. Every node must still exist.
func (t *Tree) Remove(fsys fs.FS) error {
	return removeNode(fsys, t.Base, t.Root)
}

func writeNode(fsys fs.FS, parent string, n Node) error {
	path := filepath.Join(parent, NameOf(n))

	exists, err := fsys.Exists(path)
	if err != nil {
		return fmt.Errorf("checking %q: %w", path, err)
	}

	if exists {
		return fmt.Errorf("%w: %q", ErrExists, path)
	}

	switch n := n.(type) {
	case *File:
		err = fsys.WriteFileAtomic(path, n.Content, filePerm)
		if err != nil {
			return fmt.Errorf("writing %q: %w", path, err)
		}

	case *Directory:
		err = fsys.Mkdir(path, dirPerm)
		if err != nil {
			return fmt.Errorf("creating %q: %w", path, err)
		}

		for _, child := range n.Children {
			err = writeNode(fsys, path, child)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func verifyNode(fsys fs.FS, parent string, n Node) error {
	path := filepath.Join(parent, NameOf(n))

	info, err := fsys.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrMissing, path, err)
	}

	switch n := n.(type) {
	case *File:
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %q is %v, want regular file", ErrMismatch, path, info.Mode().Type())
		}

		if info.Size() != int64(len(n.Content)) {
			return fmt.Errorf("%w: %q size %d, want %d", ErrMismatch, path, info.Size(), len(n.Content))
		}

		data, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}

		if !bytes.Equal(data, n.Content) {
			return fmt.Errorf("%w: %q content differs", ErrMismatch, path)
		}

	case *Directory:
		if !info.IsDir() {
			return fmt.Errorf("%w: %q is %v, want directory", ErrMismatch, path, info.Mode().Type())
		}

		for _, child := range n.Children {
			err = verifyNode(fsys, path, child)
			if err != nil {
				return err
			}
		}

		entries, err := fsys.ReadDir(path)
		if err != nil {
			return fmt.Errorf("listing %q: %w", path, err)
		}

		onDisk := make([]string, 0, len(entries))
		for _, e := range entries {
			onDisk = append(onDisk, e.Name())
		}

		declared := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			declared = append(declared, NameOf(child))
		}

		slices.Sort(onDisk)
		slices.Sort(declared)

		if !slices.Equal(onDisk, declared) {
			return fmt.Errorf("%w: %q lists %v, want %v", ErrMismatch, path, onDisk, declared)
		}
	}

	return nil
}

func removeNode(fsys fs.FS, parent string, n Node) error {
	path := filepath.Join(parent, NameOf(n))

	exists, err := fsys.Exists(path)
	if err != nil {
		return fmt.Errorf("checking %q: %w", path, err)
	}

	if !exists {
		return fmt.Errorf("%w: %q", ErrMissing, path)
	}

	if dir, ok := n.(*Directory); ok {
		for _, child := range dir.Children {
			err = removeNode(fsys, path, child)
			if err != nil {
				return err
			}
		}
	}

	err = fsys.Remove(path)
	if err != nil {
		return fmt.Errorf("removing %q: %w", path, err)
	}

	return nil
}

// Stats counts the nodes of a tree.
type Stats struct {
	Files int
	Dirs  int
	Bytes int
	Depth int
}

// Stats walks the tree and counts its nodes. The root counts as a directory
// at depth 0.
func (t *Tree) Stats() Stats {
	var s Stats

	var walk func(n Node, depth int)

	walk = func(n Node, depth int) {
		s.Depth = max(s.Depth, depth)

		switch n := n.(type) {
		case *File:
			s.Files++
			s.Bytes += len(n.Content)
		case *Directory:
			s.Dirs++

			for _, child := range n.Children {
				walk(child, depth+1)
			}
		}
	}

	walk(t.Root, 0)

	return s
}

// Paths lists every node path relative to Base in depth-first declaration
// order. Directories end in a separator.
func (t *Tree) Paths() []string {
	var paths []string

	var walk func(prefix string, n Node)

	walk = func(prefix string, n Node) {
		path := filepath.Join(prefix, NameOf(n))

		switch n := n.(type) {
		case *File:
			paths = append(paths, path)
		case *Directory:
			paths = append(paths, path+string(filepath.Separator))

			for _, child := range n.Children {
				walk(path, child)
			}
		}
	}

	walk("", t.Root)

	return paths
}

// String dumps the tree one path per line, files with their size.
func (t *Tree) String() string {
	var b strings.Builder

	var walk func(prefix string, n Node)

	walk = func(prefix string, n Node) {
		path := filepath.Join(prefix, NameOf(n))

		switch n := n.(type) {
		case *File:
			fmt.Fprintf(&b, "%s (%d bytes)\n", path, len(n.Content))
		case *Directory:
			b.WriteString(path + string(filepath.Separator) + "\n")

			for _, child := range n.Children {
				walk(path, child)
			}
		}
	}

	walk(t.Base, t.Root)

	return b.String()
}
