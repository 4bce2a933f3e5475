// Package fault classifies harness outcomes.
//
// There are four kinds of failure and they travel differently:
//
//   - [datasource.ErrBufferExhausted]: the input ran out. Soft.
//   - [ErrFlowAbort]: a generator bailed out on a degenerate decoded
//     structure (duplicate name, excessive depth, empty name). Soft.
//   - [ErrCollaboratorFailure]: an external capability could not perform an
//     operation. Handled where it is detected; never a defect.
//   - [ErrStructuralDefect]: a contract violation in the code under test.
//     Must reach the fuzz entry boundary unhandled.
//
// Use [IsSoft] and [IsDefect] instead of comparing against the sentinels
// directly; both look through wrapping.
package fault

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
)

var (
	// ErrFlowAbort ends the current generation harmlessly.
	ErrFlowAbort = errors.New("fault: flow abort")

	// ErrStructuralDefect marks a finding: round-trip mismatch, differential
	// divergence, or a post-condition failing after a step that guaranteed it.
	ErrStructuralDefect = errors.New("fault: structural defect")

	// ErrCollaboratorFailure means an external capability reported it could
	// not do its job. The iteration is vacuous.
	ErrCollaboratorFailure = errors.New("fault: collaborator failure")
)

// Defect returns an error wrapping [ErrStructuralDefect].
func Defect(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructuralDefect, fmt.Sprintf(format, args...))
}

// Abort returns an error wrapping [ErrFlowAbort].
func Abort(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFlowAbort, fmt.Sprintf(format, args...))
}

// Collaborator returns an error wrapping [ErrCollaboratorFailure].
func Collaborator(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCollaboratorFailure, fmt.Sprintf(format, args...))
}

// IsSoft reports whether err ends an iteration without a finding:
// buffer exhaustion or a flow abort.
//
// A defect is never soft, even if it also wraps a soft error.
func IsSoft(err error) bool {
	if err == nil || IsDefect(err) {
		return false
	}

	return errors.Is(err, datasource.ErrBufferExhausted) || errors.Is(err, ErrFlowAbort)
}

// IsDefect reports whether err is a structural defect.
func IsDefect(err error) bool {
	return errors.Is(err, ErrStructuralDefect)
}

// IsCollaborator reports whether err is a collaborator failure.
func IsCollaborator(err error) bool {
	return err != nil && !IsDefect(err) && errors.Is(err, ErrCollaboratorFailure)
}
