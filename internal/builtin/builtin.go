// Package builtin holds the harnesses shipped with the harnesskit binary.
//
// Each harness exercises one of the pkg testers against standard library or
// in-tree implementations, so a corpus can be replayed without writing Go.
package builtin

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/pkg/fs"
	"github.com/calvinalkan/harnesskit/pkg/harness"
)

// ErrUnknownHarness is returned by [Lookup].
var ErrUnknownHarness = errors.New("builtin: unknown harness")

// Env is what a harness may touch while running one input.
type Env struct {
	// FS backs the filesystem harnesses.
	FS fs.FS

	// ArchiveFS backs the archiver in [FSTreeTar]. Nil means FS. Runs with
	// injected write faults keep it reliable, since a failed unpack is a
	// finding.
	ArchiveFS fs.FS

	// Base is a directory owned by this input. Filesystem harnesses create
	// their trees below it.
	Base string

	// MaxDepth caps generated directory nesting.
	MaxDepth int

	// Loops caps how many operations [Mixed] runs per input.
	Loops int

	Logger *zap.Logger
}

func (e Env) archiveFS() fs.FS {
	if e.ArchiveFS == nil {
		return e.FS
	}

	return e.ArchiveFS
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}

	return e.Logger
}

// Harness is a named harness factory. New is called once per input.
type Harness struct {
	Name  string
	Short string
	New   func(env Env) harness.Func
}

// All returns the built-in harnesses sorted by name.
func All() []Harness {
	all := []Harness{
		{Name: "serialize-int", Short: "decimal int64 encode/decode round trip", New: SerializeInt},
		{Name: "serialize-record", Short: "msgpack struct encode/decode round trip", New: SerializeRecord},
		{Name: "differential-int", Short: "strconv, encoding/json, math/big and toml agree on integers", New: DifferentialInt},
		{Name: "fstree", Short: "write, verify and remove generated directory trees", New: FSTree},
		{Name: "fstree-tar", Short: "round-trip generated trees through tar archives", New: FSTreeTar},
		{Name: "mixed", Short: "a looped dispatch over every other harness", New: Mixed},
	}

	slices.SortFunc(all, func(a, b Harness) int { return strings.Compare(a.Name, b.Name) })

	return all
}

// Lookup returns the harness called name.
func Lookup(name string) (Harness, error) {
	for _, h := range All() {
		if h.Name == name {
			return h, nil
		}
	}

	return Harness{}, fmt.Errorf("%w: %q", ErrUnknownHarness, name)
}
