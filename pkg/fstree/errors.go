package fstree

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fault"
)

// Generation aborts. All wrap [fault.ErrFlowAbort]; the two describing
// invalid decoded names also wrap [datasource.ErrDeserialization].
var (
	ErrEmptyName     = fmt.Errorf("fstree: empty name: %w: %w", datasource.ErrDeserialization, fault.ErrFlowAbort)
	ErrDuplicateName = fmt.Errorf("fstree: duplicate sibling name: %w: %w", datasource.ErrDeserialization, fault.ErrFlowAbort)
	ErrTooDeep       = fmt.Errorf("fstree: nesting too deep: %w", fault.ErrFlowAbort)
)

// ErrWriteRejected means the filesystem refused to materialize the tree.
// Overlong or otherwise invalid paths are expected; it wraps
// [fault.ErrFlowAbort].
var ErrWriteRejected = fmt.Errorf("fstree: write rejected: %w", fault.ErrFlowAbort)

// Tree operation failures. These are plain errors: whether they are a finding
// depends on the step that produced them, which [Tester] decides.
var (
	ErrExists   = errors.New("fstree: path already exists")
	ErrMissing  = errors.New("fstree: path missing")
	ErrMismatch = errors.New("fstree: on-disk state mismatch")
)

// Archiver failures.
var (
	ErrUnsafePath  = errors.New("fstree: archive entry escapes destination")
	ErrUnsupported = errors.New("fstree: unsupported archive entry")
)
