package mutator

import (
	"math/rand/v2"
)

// maxGrowth bounds how many bytes a single step may add.
const maxGrowth = 128

// Bytes applies a bounded sequence of simple random edits: bit flips,
// overwrites, truncation, appends, inserts and duplicated ranges. It is the
// format-agnostic base mutation every custom mutation starts from.
type Bytes struct {
	rng *rand.Rand
}

// NewBytes returns a [Bytes] mutator with its own random source.
func NewBytes(seed uint64) *Bytes {
	return &Bytes{rng: rand.New(rand.NewPCG(seed, seed+1))}
}

// Mutate implements [Mutator].
func (b *Bytes) Mutate(data []byte, size, maxSize int) int {
	maxSize = min(maxSize, len(data))
	if maxSize <= 0 {
		return 0
	}

	mut := append([]byte(nil), data[:min(size, maxSize)]...)

	// 1..8 mutation steps.
	steps := 1 + b.rng.IntN(8)

	for range steps {
		if len(mut) == 0 {
			// Ensure we can still grow from empty.
			mut = append(mut, 0)
		}

		switch b.rng.IntN(6) {
		case 0: // flip bits in-place
			off := b.rng.IntN(len(mut))
			end := min(off+1+b.rng.IntN(32), len(mut))
			mask := byte(1 << b.rng.IntN(8))

			for i := off; i < end; i++ {
				mut[i] ^= mask
			}

		case 1: // overwrite a range
			off := b.rng.IntN(len(mut))
			end := min(off+1+b.rng.IntN(64), len(mut))

			for i := off; i < end; i++ {
				mut[i] = b.byte()
			}

		case 2: // truncate to a smaller length
			mut = mut[:b.rng.IntN(len(mut)+1)]

		case 3: // append some bytes
			for range 1 + b.rng.IntN(maxGrowth) {
				mut = append(mut, b.byte())
			}

		case 4: // insert a short run at an arbitrary position
			off := b.rng.IntN(len(mut) + 1)

			insert := make([]byte, 1+b.rng.IntN(32))
			for i := range insert {
				insert[i] = b.byte()
			}

			mut = append(mut[:off], append(insert, mut[off:]...)...)

		case 5: // duplicate a short range somewhere else
			if len(mut) < 2 {
				continue
			}

			from := b.rng.IntN(len(mut))
			to := b.rng.IntN(len(mut) + 1)
			end := min(from+1+b.rng.IntN(32), len(mut))
			chunk := append([]byte(nil), mut[from:end]...)
			mut = append(mut[:to], append(chunk, mut[to:]...)...)
		}

		if len(mut) > maxSize {
			mut = mut[:maxSize]
		}
	}

	return copy(data[:maxSize], mut)
}

func (b *Bytes) byte() byte {
	return byte(b.rng.Uint32())
}

var _ Mutator = (*Bytes)(nil)
