package datasource_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
)

func Test_Cursor_Bool_Returns_Parity_Of_Consumed_Byte(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   byte
		want bool
	}{
		{0x00, false},
		{0x01, true},
		{0x02, false},
		{0x03, true},
		{0x7E, false},
		{0x7F, true},
		{0xFE, false},
		{0xFF, true},
	} {
		c := datasource.New([]byte{tt.in})

		got, err := c.Bool()
		if err != nil {
			t.Fatalf("Bool(0x%02x): %v", tt.in, err)
		}

		if got != tt.want {
			t.Fatalf("Bool(0x%02x)=%v, want=%v", tt.in, got, tt.want)
		}

		if got, want := c.Position(), 1; got != want {
			t.Fatalf("position=%d, want=%d", got, want)
		}
	}
}

func Test_Cursor_Fixed_Width_Reads_Decode_Little_Endian(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0xAB,       // u8
		0x34, 0x12, // u16
		0x78, 0x56, 0x34, 0x12, // u32
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // u64
		0xFF,       // i8
		0xFE, 0xFF, // i16
	}
	c := datasource.New(buf)

	u8, err := c.Uint8()
	if err != nil || u8 != 0xAB {
		t.Fatalf("Uint8=(0x%x, %v), want 0xAB", u8, err)
	}

	u16, err := c.Uint16()
	if err != nil || u16 != 0x1234 {
		t.Fatalf("Uint16=(0x%x, %v), want 0x1234", u16, err)
	}

	u32, err := c.Uint32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("Uint32=(0x%x, %v), want 0x12345678", u32, err)
	}

	u64, err := c.Uint64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("Uint64=(0x%x, %v), want 0x0102030405060708", u64, err)
	}

	i8, err := c.Int8()
	if err != nil || i8 != -1 {
		t.Fatalf("Int8=(%d, %v), want -1", i8, err)
	}

	i16, err := c.Int16()
	if err != nil || i16 != -2 {
		t.Fatalf("Int16=(%d, %v), want -2", i16, err)
	}

	if got, want := c.Remaining(), 0; got != want {
		t.Fatalf("remaining=%d, want=%d", got, want)
	}
}

func Test_Cursor_Float_Reads_Accept_Any_Bit_Pattern(t *testing.T) {
	t.Parallel()

	// Quiet NaN, little-endian.
	c := datasource.New([]byte{0x01, 0x00, 0xC0, 0x7F})

	got, err := c.Float32()
	if err != nil {
		t.Fatalf("Float32: %v", err)
	}

	if !math.IsNaN(float64(got)) {
		t.Fatalf("Float32=%v, want NaN", got)
	}

	if bits := math.Float32bits(got); bits != 0x7FC00001 {
		t.Fatalf("bits=0x%x, want=0x7FC00001", bits)
	}
}

func Test_Cursor_Fixed_Width_Read_Leaves_Position_Unchanged_When_Buffer_Too_Short(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		buf  []byte
		read func(c *datasource.Cursor) error
	}{
		{"u8 on empty", nil, func(c *datasource.Cursor) error { _, err := c.Uint8(); return err }},
		{"u16 on 1 byte", []byte{1}, func(c *datasource.Cursor) error { _, err := c.Uint16(); return err }},
		{"u32 on 3 bytes", []byte{1, 2, 3}, func(c *datasource.Cursor) error { _, err := c.Uint32(); return err }},
		{"u64 on 7 bytes", make([]byte, 7), func(c *datasource.Cursor) error { _, err := c.Uint64(); return err }},
		{"f64 on 4 bytes", make([]byte, 4), func(c *datasource.Cursor) error { _, err := c.Float64(); return err }},
		{"bool on empty", []byte{}, func(c *datasource.Cursor) error { _, err := c.Bool(); return err }},
		{"prefix on 1 byte", []byte{5}, func(c *datasource.Cursor) error { _, err := c.Bytes(0); return err }},
		{"fixed array", make([]byte, 15), func(c *datasource.Cursor) error {
			_, err := datasource.Fixed[[16]byte](c)
			return err
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := datasource.New(tt.buf)

			err := tt.read(c)
			if !errors.Is(err, datasource.ErrBufferExhausted) {
				t.Fatalf("err=%v, want=%v", err, datasource.ErrBufferExhausted)
			}

			if got, want := c.Position(), 0; got != want {
				t.Fatalf("position=%d, want=%d", got, want)
			}

			if got, want := c.Remaining(), len(tt.buf); got != want {
				t.Fatalf("remaining=%d, want=%d", got, want)
			}
		})
	}
}

func Test_Cursor_String_Returns_Empty_When_Prefix_Is_Zero(t *testing.T) {
	t.Parallel()

	c := datasource.New([]byte{0x00, 0x00, 'a', 'b'})

	got, err := c.String(0)
	if err != nil {
		t.Fatalf("String: %v", err)
	}

	if got != "" {
		t.Fatalf("String=%q, want empty", got)
	}

	if got, want := c.Position(), 2; got != want {
		t.Fatalf("position=%d, want=%d", got, want)
	}
}

func Test_Cursor_Bytes_Decoding_Table(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		buf     []byte
		max     int
		want    []byte
		wantPos int
	}{
		{"exact fit", []byte{0x03, 0x00, 'a', 'b', 'c'}, 0, []byte("abc"), 5},
		{"shorter than remaining", []byte{0x02, 0x00, 'a', 'b', 'c'}, 0, []byte("ab"), 4},
		{"length exceeds remaining", []byte{0x04, 0x00, 'a', 'b', 'c'}, 0, []byte{}, 2},
		{"length 0x0100 on tiny buffer", []byte{0x00, 0x01, 'a'}, 0, []byte{}, 2},
		{"capped by max", []byte{0x05, 0x00, 'a', 'b', 'c', 'd', 'e'}, 2, []byte("ab"), 4},
		{"cap makes oversized length fit", []byte{0xFF, 0xFF, 'a', 'b'}, 2, []byte("ab"), 4},
		{"max larger than length", []byte{0x01, 0x00, 'z'}, 10, []byte("z"), 3},
		{"prefix only", []byte{0x00, 0x00}, 0, []byte{}, 2},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := datasource.New(tt.buf)

			got, err := c.Bytes(tt.max)
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Bytes mismatch (-want +got):\n%s", diff)
			}

			if got, want := c.Position(), tt.wantPos; got != want {
				t.Fatalf("position=%d, want=%d", got, want)
			}
		})
	}
}

func Test_Cursor_Bytes_Returns_Copy_Not_View(t *testing.T) {
	t.Parallel()

	buf := []byte{0x02, 0x00, 'h', 'i'}
	c := datasource.New(buf)

	got, err := c.Bytes(0)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	buf[2] = 'X'

	if string(got) != "hi" {
		t.Fatalf("Bytes aliases the input: got %q after mutating input", got)
	}
}

func Test_List_Reads_Until_False_Flag(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		buf     []byte
		want    []byte
		wantPos int
	}{
		{"immediately false", []byte{0x00, 0xAA}, []byte{}, 1},
		{"odd flags continue", []byte{0x01, 'a', 0x03, 'b', 0x02}, []byte("ab"), 5},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := datasource.New(tt.buf)

			got, err := c.ByteList()
			if err != nil {
				t.Fatalf("ByteList: %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ByteList mismatch (-want +got):\n%s", diff)
			}

			if got, want := c.Position(), tt.wantPos; got != want {
				t.Fatalf("position=%d, want=%d", got, want)
			}
		})
	}
}

func Test_List_Returns_Exhausted_When_Flag_Missing(t *testing.T) {
	t.Parallel()

	c := datasource.New([]byte{0x01, 'a'})

	_, err := c.ByteList()
	if !errors.Is(err, datasource.ErrBufferExhausted) {
		t.Fatalf("err=%v, want=%v", err, datasource.ErrBufferExhausted)
	}
}

func Test_StringList_Reads_At_Least_One_Element(t *testing.T) {
	t.Parallel()

	c := datasource.New([]byte{
		0x01, 0x00, 'a', 0x01, // "a", continue
		0x00, 0x00, 0x00, // "", stop
	})

	got, err := c.StringList()
	if err != nil {
		t.Fatalf("StringList: %v", err)
	}

	if diff := cmp.Diff([]string{"a", ""}, got); diff != "" {
		t.Fatalf("StringList mismatch (-want +got):\n%s", diff)
	}
}

func Test_Fixed_Decodes_Struct_Verbatim(t *testing.T) {
	t.Parallel()

	type header struct {
		Magic   uint16
		Version uint8
		Flags   [2]byte
	}

	c := datasource.New([]byte{0xCD, 0xAB, 0x07, 0x01, 0x02, 0xFF})

	got, err := datasource.Fixed[header](c)
	if err != nil {
		t.Fatalf("Fixed: %v", err)
	}

	want := header{Magic: 0xABCD, Version: 7, Flags: [2]byte{1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Fixed mismatch (-want +got):\n%s", diff)
	}

	if got, want := c.Remaining(), 1; got != want {
		t.Fatalf("remaining=%d, want=%d", got, want)
	}
}

func Test_Cursor_Choice_Reads_Two_Bytes(t *testing.T) {
	t.Parallel()

	c := datasource.New([]byte{0x02, 0x01})

	got, err := c.Choice()
	if err != nil {
		t.Fatalf("Choice: %v", err)
	}

	if got != 0x0102 {
		t.Fatalf("Choice=0x%x, want=0x0102", got)
	}
}

func Test_Cursor_Rest_Consumes_Everything(t *testing.T) {
	t.Parallel()

	c := datasource.New([]byte{1, 2, 3})
	_, _ = c.Uint8()

	if diff := cmp.Diff([]byte{2, 3}, c.Rest()); diff != "" {
		t.Fatalf("Rest mismatch (-want +got):\n%s", diff)
	}

	if c.HasMore() {
		t.Fatal("HasMore=true after Rest")
	}

	if got := c.Rest(); len(got) != 0 {
		t.Fatalf("second Rest=%v, want empty", got)
	}
}
