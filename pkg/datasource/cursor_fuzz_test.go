package datasource_test

import (
	"errors"
	"testing"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
)

// Drives random read sequences and checks the cursor bookkeeping after every
// step. The read to perform is chosen by the input itself.
func FuzzCursor_Position_Plus_Remaining_Equals_Len(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00, 0x00})
	f.Add([]byte{0x05, 0x05, 0x00, 'a', 'b', 'c'})
	f.Add([]byte("\x01\x02\x03\x04\x05\x06\x07\x08\x09"))

	f.Fuzz(func(t *testing.T, data []byte) {
		c := datasource.New(data)

		for c.HasMore() {
			before := c.Position()

			op, _ := c.Uint8()

			var err error

			switch op % 6 {
			case 0:
				_, err = c.Uint16()
			case 1:
				_, err = c.Uint64()
			case 2:
				_, err = c.Bool()
			case 3:
				_, err = c.Bytes(int(op))
			case 4:
				_, err = c.String(0)
			case 5:
				_, err = c.ByteList()
			}

			if got, want := c.Position()+c.Remaining(), len(data); got != want {
				t.Fatalf("position+remaining=%d, want=%d", got, want)
			}

			if err != nil {
				if !errors.Is(err, datasource.ErrBufferExhausted) {
					t.Fatalf("unexpected error: %v", err)
				}

				return
			}

			if c.Position() <= before {
				t.Fatalf("cursor did not advance: %d -> %d", before, c.Position())
			}
		}
	})
}
