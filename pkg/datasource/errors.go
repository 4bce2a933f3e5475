package datasource

import "errors"

// Sentinel errors returned by [Cursor] reads.
//
// Callers should use [errors.Is]:
//
//	v, err := c.Uint32()
//	if errors.Is(err, datasource.ErrBufferExhausted) {
//	    return err // ends the iteration harmlessly
//	}
var (
	// ErrBufferExhausted indicates a read asked for more bytes than remain.
	//
	// It is the only hard failure a cursor produces. It must be propagated,
	// never swallowed: the fuzz entry boundary turns it into a clean return.
	ErrBufferExhausted = errors.New("datasource: buffer exhausted")

	// ErrDeserialization flags structurally invalid decoded content (for
	// example an empty generated filename). The cursor itself never returns
	// it; higher layers do.
	ErrDeserialization = errors.New("datasource: deserialization failure")
)
