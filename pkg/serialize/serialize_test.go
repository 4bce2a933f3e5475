package serialize_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fault"
	"github.com/calvinalkan/harnesskit/pkg/serialize"
)

func intCodec() *serialize.Tester[int64, string] {
	return &serialize.Tester[int64, string]{
		Encode: func(o int64) (string, bool) { return strconv.FormatInt(o, 10), true },
		Decode: func(b string) (int64, bool) {
			v, err := strconv.ParseInt(b, 10, 64)

			return v, err == nil
		},
	}
}

func decodeInt(c *datasource.Cursor) (int64, error) { return c.Int64() }

func decodeStr(c *datasource.Cursor) (string, error) { return c.String(32) }

func Test_TestBinary_Passes_When_Codec_Is_Consistent(t *testing.T) {
	t.Parallel()

	tester := intCodec()

	for _, in := range []string{"0", "-1", "+7", "007", "9223372036854775807", "not a number", ""} {
		if err := tester.TestBinary(in); err != nil {
			t.Fatalf("TestBinary(%q): %v", in, err)
		}
	}
}

func Test_TestObject_Passes_When_Codec_Is_Consistent(t *testing.T) {
	t.Parallel()

	tester := intCodec()

	for _, in := range []int64{0, 1, -1, 1 << 62, -1 << 63} {
		if err := tester.TestObject(in); err != nil {
			t.Fatalf("TestObject(%d): %v", in, err)
		}
	}
}

func Test_TestObject_Reports_Mismatch_When_Encoding_Is_Not_Stable(t *testing.T) {
	t.Parallel()

	calls := 0
	tester := &serialize.Tester[string, string]{
		// Every encode appends a generation marker.
		Encode: func(o string) (string, bool) {
			calls++

			return o + strconv.Itoa(calls), true
		},
		Decode: func(b string) (string, bool) { return b, true },
	}

	err := tester.TestObject("x")

	var mm *serialize.Mismatch
	if !errors.As(err, &mm) {
		t.Fatalf("err=%v, want *Mismatch", err)
	}

	if !fault.IsDefect(err) {
		t.Fatalf("IsDefect(%v)=false, want=true", err)
	}

	if got, want := mm.Start, "object"; got != want {
		t.Fatalf("Start=%q, want=%q", got, want)
	}

	if !strings.Contains(err.Error(), "double conversion mismatch") {
		t.Fatalf("Error()=%q, want mention of double conversion mismatch", err.Error())
	}
}

func Test_TestBinary_Reports_Mismatch_When_Decode_Drifts(t *testing.T) {
	t.Parallel()

	tester := &serialize.Tester[int, string]{
		Encode: func(o int) (string, bool) { return strconv.Itoa(o + 1), true },
		Decode: func(b string) (int, bool) {
			v, err := strconv.Atoi(b)

			return v, err == nil
		},
	}

	var mm *serialize.Mismatch
	if err := tester.TestBinary("1"); !errors.As(err, &mm) {
		t.Fatalf("err=%v, want *Mismatch", err)
	}

	if got, want := mm.Start, "binary"; got != want {
		t.Fatalf("Start=%q, want=%q", got, want)
	}
}

// drifting returns a codec whose completed chains always mismatch: encode
// appends "!" and decode appends "?". Conversion number failAt (1-based,
// counting encodes and decodes together) is rejected.
func drifting(failAt int) *serialize.Tester[string, string] {
	n := 0
	step := func() bool {
		n++

		return n != failAt
	}

	return &serialize.Tester[string, string]{
		Encode: func(o string) (string, bool) { return o + "!", step() },
		Decode: func(b string) (string, bool) { return b + "?", step() },
	}
}

func Test_Tests_Are_Vacuous_When_Any_Conversion_Fails(t *testing.T) {
	t.Parallel()

	for failAt := 1; failAt <= 3; failAt++ {
		if err := drifting(failAt).TestObject("o"); err != nil {
			t.Fatalf("TestObject with conversion %d failing: %v", failAt, err)
		}

		if err := drifting(failAt).TestBinary("b"); err != nil {
			t.Fatalf("TestBinary with conversion %d failing: %v", failAt, err)
		}
	}

	// Sanity: without a failure the same codec mismatches.
	if err := drifting(0).TestObject("o"); !fault.IsDefect(err) {
		t.Fatalf("TestObject without failure: err=%v, want defect", err)
	}
}

func Test_Run_Selects_Direction_From_Flag(t *testing.T) {
	t.Parallel()

	var objects, binaries int

	tester := &serialize.Tester[int64, string]{
		Encode: func(o int64) (string, bool) { return strconv.FormatInt(o, 10), true },
		Decode: func(b string) (int64, bool) {
			v, err := strconv.ParseInt(b, 10, 64)

			return v, err == nil
		},
	}

	decObj := func(c *datasource.Cursor) (int64, error) {
		objects++

		return decodeInt(c)
	}
	decBin := func(c *datasource.Cursor) (string, error) {
		binaries++

		return decodeStr(c)
	}

	objectFirst := []byte{0x01, 1, 0, 0, 0, 0, 0, 0, 0}
	if err := tester.Run(datasource.New(objectFirst), decObj, decBin); err != nil {
		t.Fatalf("Run(object): %v", err)
	}

	binaryFirst := []byte{0x00, 0x02, 0x00, '4', '2'}
	if err := tester.Run(datasource.New(binaryFirst), decObj, decBin); err != nil {
		t.Fatalf("Run(binary): %v", err)
	}

	if objects != 1 || binaries != 1 {
		t.Fatalf("objects=%d binaries=%d, want=1 each", objects, binaries)
	}
}

func Test_Run_Returns_Exhausted_When_Start_Value_Missing(t *testing.T) {
	t.Parallel()

	err := intCodec().Run(datasource.New([]byte{0x01, 0x00}), decodeInt, decodeStr)
	if !fault.IsSoft(err) {
		t.Fatalf("err=%v, want soft", err)
	}
}

func FuzzTester_Int64_Decimal_Round_Trip(f *testing.F) {
	f.Add([]byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F})
	f.Add([]byte{0x00, 0x03, 0x00, '-', '1', '2'})
	f.Add([]byte{0x00, 0x02, 0x00, '+', '0'})

	tester := intCodec()

	f.Fuzz(func(t *testing.T, data []byte) {
		err := tester.Run(datasource.New(data), decodeInt, decodeStr)
		if fault.IsDefect(err) {
			t.Fatal(err)
		}
	})
}
