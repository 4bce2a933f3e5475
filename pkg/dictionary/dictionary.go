// Package dictionary holds tokens a mutator splices into fuzz inputs.
//
// A [Dictionary] is append-only and not safe for concurrent use: mutators
// run one iteration at a time.
package dictionary

import (
	"math/rand/v2"
)

// Dictionary is an append-only list of tokens with a private random source.
type Dictionary struct {
	rng    *rand.Rand
	tokens []string
	seen   map[string]struct{}
}

// New returns an empty dictionary. seed fixes the sequence [Dictionary.Random]
// produces.
func New(seed uint64) *Dictionary {
	return &Dictionary{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seen: make(map[string]struct{}),
	}
}

// Add appends token, even if it is already present.
func (d *Dictionary) Add(token string) {
	d.tokens = append(d.tokens, token)
	d.seen[token] = struct{}{}
}

// Merge appends token unless it is already present. Reports whether it was
// added.
func (d *Dictionary) Merge(token string) bool {
	if _, ok := d.seen[token]; ok {
		return false
	}

	d.Add(token)

	return true
}

// Random returns a uniformly chosen token, or "" if the dictionary is empty.
func (d *Dictionary) Random() string {
	if len(d.tokens) == 0 {
		return ""
	}

	return d.tokens[d.rng.IntN(len(d.tokens))]
}

// Len returns the number of tokens.
func (d *Dictionary) Len() int {
	return len(d.tokens)
}

// Tokens returns a copy of all tokens in insertion order.
func (d *Dictionary) Tokens() []string {
	return append([]string(nil), d.tokens...)
}
