// Package serialize checks that an encoder and decoder agree with each other.
//
// Starting from either side, converting there and back twice must land on an
// equal value. Conversion failures are not findings: the codec may reject
// arbitrary input. Only inequality after a successful double conversion is.
package serialize

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fault"
)

// Tester round-trips values of object type O through binary type B.
type Tester[O, B any] struct {
	// Encode converts an object to its binary form. false means rejected.
	Encode func(o O) (B, bool)

	// Decode converts a binary form to an object. false means rejected.
	Decode func(b B) (O, bool)

	// EqualObject and EqualBinary override go-cmp equality.
	EqualObject func(a, b O) bool
	EqualBinary func(a, b B) bool

	// CmpOptions are passed to cmp.Equal and cmp.Diff.
	CmpOptions []cmp.Option
}

// TestBinary starts from a binary value: decode, encode, decode, then
// compares the two decoded objects.
func (t *Tester[O, B]) TestBinary(b B) error {
	o1, ok := t.Decode(b)
	if !ok {
		return nil
	}

	b1, ok := t.Encode(o1)
	if !ok {
		return nil
	}

	o2, ok := t.Decode(b1)
	if !ok {
		return nil
	}

	if t.equalObject(o1, o2) {
		return nil
	}

	return &Mismatch{
		Start: "binary",
		Input: fmt.Sprintf("%#v", b),
		Diff:  cmp.Diff(o1, o2, t.CmpOptions...),
	}
}

// TestObject starts from an object: encode, decode, encode, then compares
// the two encoded binaries.
func (t *Tester[O, B]) TestObject(o O) error {
	b1, ok := t.Encode(o)
	if !ok {
		return nil
	}

	o1, ok := t.Decode(b1)
	if !ok {
		return nil
	}

	b2, ok := t.Encode(o1)
	if !ok {
		return nil
	}

	if t.equalBinary(b1, b2) {
		return nil
	}

	return &Mismatch{
		Start: "object",
		Input: fmt.Sprintf("%#v", o),
		Diff:  cmp.Diff(b1, b2, t.CmpOptions...),
	}
}

// Run decodes a direction flag, then the starting value, and runs the
// matching test. true starts from an object.
func (t *Tester[O, B]) Run(
	c *datasource.Cursor,
	decodeObject func(*datasource.Cursor) (O, error),
	decodeBinary func(*datasource.Cursor) (B, error),
) error {
	objectFirst, err := c.Bool()
	if err != nil {
		return err
	}

	if objectFirst {
		o, err := decodeObject(c)
		if err != nil {
			return err
		}

		return t.TestObject(o)
	}

	b, err := decodeBinary(c)
	if err != nil {
		return err
	}

	return t.TestBinary(b)
}

func (t *Tester[O, B]) equalObject(a, b O) bool {
	if t.EqualObject != nil {
		return t.EqualObject(a, b)
	}

	return cmp.Equal(a, b, t.CmpOptions...)
}

func (t *Tester[O, B]) equalBinary(a, b B) bool {
	if t.EqualBinary != nil {
		return t.EqualBinary(a, b)
	}

	return cmp.Equal(a, b, t.CmpOptions...)
}

// Mismatch reports a double conversion producing a different value.
type Mismatch struct {
	// Start is "object" or "binary".
	Start string
	Input string
	Diff  string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("%v: double conversion mismatch starting from %s %s (-first +second):\n%s",
		fault.ErrStructuralDefect, m.Start, m.Input, m.Diff)
}

// Unwrap makes a Mismatch match [fault.ErrStructuralDefect].
func (m *Mismatch) Unwrap() error {
	return fault.ErrStructuralDefect
}
