package mutator

import (
	"fortio.org/safecast"
)

// Registry holds the custom mutators of a process. It is not safe for
// concurrent use: populate it before the first iteration.
type Registry struct {
	base     Mutator
	mutators []Mutator
}

// NewRegistry returns a registry whose base mutation is base. Nil means
// [NewBytes] with seed 0.
func NewRegistry(base Mutator) *Registry {
	if base == nil {
		base = NewBytes(0)
	}

	return &Registry{base: base}
}

// Default is the process-wide registry consulted by engine hooks.
var Default = NewRegistry(nil)

// Register adds m to [Default].
func Register(m Mutator) {
	Default.Register(m)
}

// Register adds m. Registration order fixes which seed selects which
// mutator.
func (r *Registry) Register(m Mutator) {
	r.mutators = append(r.mutators, m)
}

// Len returns the number of registered mutators.
func (r *Registry) Len() int {
	return len(r.mutators)
}

// CustomMutate is the engine's custom mutator entry point.
//
// It always runs the base mutation first. If the low bit of seed is set and
// mutators are registered, it then runs the one at index
// (seed >> 1) % Len(). The returned size never exceeds maxSize.
func (r *Registry) CustomMutate(data []byte, size, maxSize int, seed uint32) int {
	maxSize = min(maxSize, len(data))
	runCustom := seed&1 == 1
	seed >>= 1

	size = clamp(r.base.Mutate(data, size, maxSize), maxSize)

	if !runCustom || len(r.mutators) == 0 {
		return size
	}

	n, err := safecast.Conv[uint32](len(r.mutators))
	if err != nil {
		return size
	}

	m := r.mutators[seed%n]

	return clamp(m.Mutate(data, size, maxSize), maxSize)
}

func clamp(size, maxSize int) int {
	return max(0, min(size, maxSize))
}
