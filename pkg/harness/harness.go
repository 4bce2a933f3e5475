// Package harness is the boundary between a fuzzing engine and harness code.
//
// Harness functions receive a fresh cursor per input and return an error.
// The boundary classifies it: running out of input, aborted generation and
// unavailable collaborators end the iteration quietly; structural defects
// and anything unrecognized become engine-visible crashes.
package harness

import (
	"errors"
	"fmt"
	"runtime/debug"
	"testing"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fault"
)

// Func is a harness body.
type Func func(c *datasource.Cursor) error

// Run is a go-fuzz style entry point. It returns 0 for every input that
// does not reveal a defect and panics with the error otherwise.
func Run(data []byte, fn Func) int {
	err := classify(fn(datasource.New(data)))
	if err != nil {
		panic(err)
	}

	return 0
}

// Check runs fn like [Run] but returns the defect instead of panicking.
// A panic raised inside fn is recovered and returned as a [*PanicError].
func Check(data []byte, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return classify(fn(datasource.New(data)))
}

// FuzzFunc adapts fn for [testing.F.Fuzz]:
//
//	f.Fuzz(harness.FuzzFunc(myHarness))
func FuzzFunc(fn Func) func(t *testing.T, data []byte) {
	return func(t *testing.T, data []byte) {
		t.Helper()

		err := Check(data, fn)
		if err != nil {
			t.Fatalf("%v", err)
		}
	}
}

// classify returns nil for outcomes that end an iteration without a
// finding and the error itself otherwise.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case fault.IsDefect(err):
		return err
	case fault.IsSoft(err), fault.IsCollaborator(err):
		return nil
	default:
		return fmt.Errorf("%w: unclassified harness error: %w", fault.ErrStructuralDefect, err)
	}
}

// PanicError is a panic recovered from harness code.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v: panic: %v\n%s", fault.ErrStructuralDefect, p.Value, p.Stack)
}

// Unwrap makes a PanicError match [fault.ErrStructuralDefect], and the
// panic value itself when it is an error.
func (p *PanicError) Unwrap() []error {
	errs := []error{fault.ErrStructuralDefect}

	if err, ok := p.Value.(error); ok {
		errs = append(errs, err)
	}

	return errs
}

// IsPanic reports whether err came from a recovered panic.
func IsPanic(err error) bool {
	var p *PanicError

	return errors.As(err, &p)
}
