// Package fstree generates random file trees from fuzz input and checks that
// a filesystem (optionally followed by a transformation such as an archive
// round trip) stores them faithfully.
package fstree

import (
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
)

// DefaultMaxDepth bounds directory nesting so generation cannot exhaust the
// stack or the filesystem's path length on its own.
const DefaultMaxDepth = 4096

// Node is a [*File] or a [*Directory].
type Node interface {
	node()
}

// File is a regular file with fixed content.
type File struct {
	Name    string
	Content []byte
}

// Directory holds an ordered list of uniquely named children.
type Directory struct {
	Name     string
	Children []Node
}

func (*File) node()      {}
func (*Directory) node() {}

// NameOf returns the name of n.
func NameOf(n Node) string {
	switch n := n.(type) {
	case *File:
		return n.Name
	case *Directory:
		return n.Name
	default:
		panic(fmt.Sprintf("fstree: unknown node %T", n))
	}
}

// Options configures [Generate].
type Options struct {
	// MaxDepth is the deepest allowed directory level below the root.
	// Zero means [DefaultMaxDepth].
	MaxDepth int

	// MaxNameLen caps decoded name length. Zero means uncapped.
	MaxNameLen int

	// Allowed reports whether a name byte is kept as is. Other bytes become
	// '_'. Nil means ASCII digits only.
	Allowed func(b byte) bool
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}

	if o.Allowed == nil {
		o.Allowed = isDigit
	}

	return o
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Tree is a generated directory rooted at Base/Root.Name.
type Tree struct {
	Base string
	Root *Directory
}

// Path returns the absolute location of the root directory.
func (t *Tree) Path() string {
	return filepath.Join(t.Base, t.Root.Name)
}

// Generate decodes a tree rooted under base.
//
// Layout: the root is a directory. A directory is a name followed by
// (continue-flag, kind-flag, child) triples until a false continue flag;
// kind true is a file, false a directory. A file is a name followed by its
// content as a flag-terminated byte list.
func Generate(c *datasource.Cursor, base string, opts Options) (*Tree, error) {
	g := generator{c: c, opts: opts.withDefaults()}

	root, err := g.directory(0)
	if err != nil {
		return nil, err
	}

	return &Tree{Base: base, Root: root}, nil
}

type generator struct {
	c    *datasource.Cursor
	opts Options
}

func (g *generator) name() (string, error) {
	raw, err := g.c.Bytes(g.opts.MaxNameLen)
	if err != nil {
		return "", err
	}

	if len(raw) == 0 {
		return "", ErrEmptyName
	}

	for i, b := range raw {
		if !g.opts.Allowed(b) {
			raw[i] = '_'
		}
	}

	return string(raw), nil
}

func (g *generator) file() (*File, error) {
	name, err := g.name()
	if err != nil {
		return nil, err
	}

	content, err := g.c.ByteList()
	if err != nil {
		return nil, err
	}

	return &File{Name: name, Content: content}, nil
}

func (g *generator) directory(depth int) (*Directory, error) {
	name, err := g.name()
	if err != nil {
		return nil, err
	}

	dir := &Directory{Name: name}
	seen := make(map[string]struct{})

	for {
		more, err := g.c.Bool()
		if err != nil {
			return nil, err
		}

		if !more {
			return dir, nil
		}

		isFile, err := g.c.Bool()
		if err != nil {
			return nil, err
		}

		var child Node

		if isFile {
			child, err = g.file()
		} else {
			if depth+1 > g.opts.MaxDepth {
				return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrTooDeep, depth+1, g.opts.MaxDepth)
			}

			child, err = g.directory(depth + 1)
		}

		if err != nil {
			return nil, err
		}

		childName := NameOf(child)
		if _, dup := seen[childName]; dup {
			return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateName, childName, name)
		}

		seen[childName] = struct{}{}
		dir.Children = append(dir.Children, child)
	}
}
