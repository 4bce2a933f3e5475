// Package dispatch picks one of N operations by a decoded index.
//
// A [Table] lets a single fuzz input script an arbitrary sequence of
// operations: each step reads a 2-byte selector and runs the matching entry.
// Selectors at or past the end of the table do nothing, so a mutated selector
// degrades into a skipped step instead of a harness failure.
package dispatch

import (
	"github.com/calvinalkan/harnesskit/pkg/datasource"
)

// Op is a named operation driven by the cursor.
type Op struct {
	Name string
	Fn   func(c *datasource.Cursor) error
}

// Table is an ordered list of operations. The order is part of the corpus
// format: appending is safe, reordering is not.
type Table struct {
	ops []Op
}

// New returns a table over ops.
func New(ops ...Op) *Table {
	return &Table{ops: append([]Op(nil), ops...)}
}

// Len returns the number of operations.
func (t *Table) Len() int {
	return len(t.ops)
}

// Names returns the operation names in table order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.ops))
	for _, op := range t.ops {
		names = append(names, op.Name)
	}

	return names
}

// Select reads a selector and returns the matching operation.
// ok is false when the selector is out of range.
func (t *Table) Select(c *datasource.Cursor) (op Op, ok bool, err error) {
	which, err := c.Choice()
	if err != nil {
		return Op{}, false, err
	}

	if int(which) >= len(t.ops) {
		return Op{}, false, nil
	}

	return t.ops[which], true, nil
}

// Test reads one selector and runs the selected operation.
//
// An out-of-range selector (including any selector on an empty table) is a
// no-op and returns nil. Errors from the cursor or the operation are
// returned unchanged.
func (t *Table) Test(c *datasource.Cursor) error {
	op, ok, err := t.Select(c)
	if err != nil || !ok {
		return err
	}

	return op.Fn(c)
}

// Loop runs [Table.Test] n times, stopping at the first error.
func (t *Table) Loop(c *datasource.Cursor, n int) error {
	for range n {
		if err := t.Test(c); err != nil {
			return err
		}
	}

	return nil
}
