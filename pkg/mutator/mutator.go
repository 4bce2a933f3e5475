// Package mutator implements structure-aware mutation for cursor-framed
// inputs and the custom-mutator hook a fuzzing engine calls.
//
// All mutators work in place on an engine-owned buffer: data[:size] is the
// current input and data[:maxSize] is writable. They return the new size,
// which never exceeds maxSize. Mutators must not panic.
package mutator

import (
	"encoding/binary"
	"math/rand/v2"

	"fortio.org/safecast"

	"github.com/calvinalkan/harnesskit/pkg/dictionary"
)

// Mutator rewrites data[:size] in place and returns the new size.
type Mutator interface {
	Mutate(data []byte, size, maxSize int) int
}

// prefixLen matches the length prefix the cursor reads for blobs.
const prefixLen = 2

// Prefix walks an input as a chain of (length prefix, payload) fields and
// rewrites each prefix to fit the input, so mutated inputs keep decoding
// into non-empty blobs instead of collapsing to empty ones. It may splice
// dictionary tokens into payload slots. The length never changes.
type Prefix struct {
	rng   *rand.Rand
	dicts []*dictionary.Dictionary
}

// NewPrefix returns a [Prefix] mutator with its own random source.
func NewPrefix(seed uint64) *Prefix {
	return &Prefix{rng: rand.New(rand.NewPCG(seed, ^seed))}
}

// AddSource adds a dictionary tokens are drawn from.
func (p *Prefix) AddSource(d *dictionary.Dictionary) {
	p.dicts = append(p.dicts, d)
}

// Mutate implements [Mutator]. It runs on roughly half of the calls.
func (p *Prefix) Mutate(data []byte, size, _ int) int {
	if size <= prefixLen || !p.coin() {
		return size
	}

	for i := 0; i+prefixLen < size; {
		s := int(binary.LittleEndian.Uint16(data[i:])) % size

		// s < size and s <= the decoded uint16, so it always fits.
		v, err := safecast.Conv[uint16](s)
		if err != nil {
			return size
		}

		binary.LittleEndian.PutUint16(data[i:], v)
		i += prefixLen

		if len(p.dicts) > 0 && p.coin() {
			entry := p.dicts[p.rng.IntN(len(p.dicts))].Random()

			if s >= len(entry) && i+s < size {
				copy(data[i:size], entry)
			}
		}

		i += s
	}

	return size
}

func (p *Prefix) coin() bool {
	return p.rng.IntN(2) == 1
}

var _ Mutator = (*Prefix)(nil)
