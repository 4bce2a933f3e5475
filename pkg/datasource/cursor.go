// Package datasource turns a fuzzer-supplied byte blob into a deterministic
// stream of typed values.
//
// A [Cursor] borrows the input for exactly one fuzz iteration. Reads are
// pull-based and come in two flavours with deliberately different failure
// behavior:
//
//   - Fixed-width reads ([Cursor.Uint16], [Fixed], [Cursor.Bool], ...) fail
//     with [ErrBufferExhausted] when too few bytes remain. The cursor is left
//     unchanged.
//   - Variable-length reads ([Cursor.Bytes], [Cursor.String]) consume a
//     2-byte length prefix and then the payload. A zero length, or a length
//     larger than what remains after the prefix, yields an empty result
//     instead of an error.
//
// This asymmetry is part of the corpus format. Changing it invalidates every
// corpus built against it.
//
// Multi-byte values are little-endian.
package datasource

import (
	"encoding/binary"
	"fmt"
	"math"
)

const prefixSize = 2

// Cursor reads typed values sequentially from a borrowed byte slice.
//
// The zero value is an empty cursor. A Cursor must not be retained after
// the fuzz iteration that owns the buffer returns, and it never hands out
// slices that alias the buffer.
type Cursor struct {
	data []byte
	pos  int
}

// New creates a cursor over data. data is borrowed, not copied.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int {
	return len(c.data)
}

// Position returns the number of bytes consumed so far.
func (c *Cursor) Position() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
// Position()+Remaining() == Len() always holds.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// HasMore reports whether unread bytes remain.
func (c *Cursor) HasMore() bool {
	return c.pos < len(c.data)
}

// Rest consumes and returns a copy of all unread bytes.
// Returns an empty slice when the cursor is exhausted.
func (c *Cursor) Rest() []byte {
	out := append([]byte{}, c.data[c.pos:]...)
	c.pos = len(c.data)

	return out
}

// take consumes exactly n bytes and returns them as a view into the
// borrowed buffer. Callers must copy before letting the view escape.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferExhausted, n, c.Remaining())
	}

	v := c.data[c.pos : c.pos+n]
	c.pos += n

	return v, nil
}

// --- Fixed width ---

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Uint16 reads 2 bytes.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads 4 bytes.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads 8 bytes.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// Int8 reads one byte as a two's complement value.
func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()

	return int8(v), err
}

// Int16 reads 2 bytes as a two's complement value.
func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()

	return int16(v), err
}

// Int32 reads 4 bytes as a two's complement value.
func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()

	return int32(v), err
}

// Int64 reads 8 bytes as a two's complement value.
func (c *Cursor) Int64() (int64, error) {
	v, err := c.Uint64()

	return int64(v), err
}

// Float32 reads 4 bytes verbatim as an IEEE 754 value. NaN and infinities
// are returned as-is.
func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()

	return math.Float32frombits(v), err
}

// Float64 reads 8 bytes verbatim as an IEEE 754 value.
func (c *Cursor) Float64() (float64, error) {
	v, err := c.Uint64()

	return math.Float64frombits(v), err
}

// Bool consumes one byte and reports whether it is odd.
//
// This is a parity test, not a comparison with 1: 0x03 is true, 0x02 is false.
func (c *Cursor) Bool() (bool, error) {
	v, err := c.Uint8()
	if err != nil {
		return false, err
	}

	return v%2 == 1, nil
}

// Choice reads a 2-byte selector. The range is unconstrained; callers map
// it onto their own table (see package dispatch).
func (c *Cursor) Choice() (uint16, error) {
	return c.Uint16()
}

// Fixed reads a value of any fixed-size type T (integers, floats, bools,
// arrays and structs of those) by copying binary.Size(T) bytes.
//
// Note that bool fields decoded this way follow encoding/binary (non-zero is
// true), not the parity rule of [Cursor.Bool].
func Fixed[T any](c *Cursor) (T, error) {
	var v T

	size := binary.Size(v)
	if size < 0 {
		panic(fmt.Sprintf("datasource: %T is not a fixed-size type", v))
	}

	b, err := c.take(size)
	if err != nil {
		return v, err
	}

	_, err = binary.Decode(b, binary.LittleEndian, &v)
	if err != nil {
		// Unreachable for fixed-size types once the size check passed.
		panic(fmt.Sprintf("datasource: decoding %T: %v", v, err))
	}

	return v, nil
}

// --- Variable length ---

// Bytes reads a length-prefixed blob and returns a copy of it.
//
// The 2-byte prefix is always consumed. If max > 0 the length is capped to
// max. A zero length, or a length larger than the bytes remaining after the
// prefix, returns an empty slice and consumes nothing further.
//
// Only a missing prefix is an error ([ErrBufferExhausted]).
func (c *Cursor) Bytes(maxLen int) ([]byte, error) {
	n16, err := c.Uint16()
	if err != nil {
		return nil, err
	}

	n := int(n16)
	if maxLen > 0 && n > maxLen {
		n = maxLen
	}

	if n == 0 || n > c.Remaining() {
		return []byte{}, nil
	}

	b, _ := c.take(n)

	return append([]byte(nil), b...), nil
}

// String reads a length-prefixed blob as a string. See [Cursor.Bytes].
func (c *Cursor) String(maxLen int) (string, error) {
	b, err := c.Bytes(maxLen)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// List reads a boolean-flag sequence: while the next [Cursor.Bool] is true,
// read one element. An immediately false flag yields an empty list.
//
// There is no bound beyond buffer exhaustion.
func List[T any](c *Cursor, read func(*Cursor) (T, error)) ([]T, error) {
	out := []T{}

	for {
		more, err := c.Bool()
		if err != nil {
			return nil, err
		}

		if !more {
			return out, nil
		}

		v, err := read(c)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}
}

// StringList reads at least one string: (string, continue-flag) pairs,
// stopping after the first false flag.
func (c *Cursor) StringList() ([]string, error) {
	var out []string

	for {
		s, err := c.String(0)
		if err != nil {
			return nil, err
		}

		out = append(out, s)

		more, err := c.Bool()
		if err != nil {
			return nil, err
		}

		if !more {
			return out, nil
		}
	}
}

// ByteList reads a boolean-flag sequence of single bytes.
func (c *Cursor) ByteList() ([]byte, error) {
	return List(c, (*Cursor).Uint8)
}
