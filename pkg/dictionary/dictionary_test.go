package dictionary_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/harnesskit/pkg/dictionary"
)

func Test_Random_Returns_Empty_When_Dictionary_Is_Empty(t *testing.T) {
	t.Parallel()

	d := dictionary.New(1)

	if got, want := d.Random(), ""; got != want {
		t.Fatalf("Random()=%q, want=%q", got, want)
	}

	if got, want := d.Len(), 0; got != want {
		t.Fatalf("Len()=%d, want=%d", got, want)
	}
}

func Test_Random_Returns_Only_Added_Tokens(t *testing.T) {
	t.Parallel()

	d := dictionary.New(7)
	d.Add("a")
	d.Add("b")
	d.Add("a")

	if got, want := d.Len(), 3; got != want {
		t.Fatalf("Len()=%d, want=%d", got, want)
	}

	seen := map[string]bool{}
	for range 200 {
		seen[d.Random()] = true
	}

	if diff := cmp.Diff(map[string]bool{"a": true, "b": true}, seen); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func Test_Random_Is_Deterministic_For_Seed(t *testing.T) {
	t.Parallel()

	draw := func() []string {
		d := dictionary.New(99)
		for _, tok := range []string{"x", "y", "z", "w"} {
			d.Add(tok)
		}

		out := make([]string, 0, 20)
		for range 20 {
			out = append(out, d.Random())
		}

		return out
	}

	if diff := cmp.Diff(draw(), draw()); diff != "" {
		t.Fatalf("sequence mismatch (-first +second):\n%s", diff)
	}
}

func Test_Load_Parses_LibFuzzer_Syntax_And_Dedupes(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# comment",
		"",
		`kw1="GET"`,
		`"GET"`,
		`  "with space"  `,
		`esc="a\\b\"c"`,
		`hex="\x00\xFF\x41"`,
		`kw2 = "eq"`,
	}, "\n")

	d := dictionary.New(1)

	added, err := d.Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := added, 5; got != want {
		t.Fatalf("added=%d, want=%d", got, want)
	}

	want := []string{"GET", "with space", `a\b"c`, "\x00\xffA", "eq"}
	if diff := cmp.Diff(want, d.Tokens()); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func Test_Load_Rejects_Malformed_Lines(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		`GET`,
		`"GET`,
		`kw1 "GET"`,
		`"a"b"`,
		`"\q"`,
		`"\x4"`,
		`"\xZZ"`,
		`"trailing\"`,
	} {
		_, err := dictionary.New(1).Load(strings.NewReader(line))
		if !errors.Is(err, dictionary.ErrSyntax) {
			t.Fatalf("Load(%s) err=%v, want=%v", line, err, dictionary.ErrSyntax)
		}
	}
}

func Test_WriteTo_Output_Loads_Back_To_Same_Tokens(t *testing.T) {
	t.Parallel()

	src := dictionary.New(1)
	for _, tok := range []string{"plain", `q"uote`, `back\slash`, "\x00\x7f\xff", "\n"} {
		src.Add(tok)
	}

	var buf bytes.Buffer
	if _, err := src.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	dst := dictionary.New(2)
	if _, err := dst.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff(src.Tokens(), dst.Tokens()); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func Test_LoadFile_Reports_Path_On_Syntax_Error(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.dict")
	if err := os.WriteFile(path, []byte("\"ok\"\nbroken\n"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	d := dictionary.New(1)

	n, err := d.LoadFile(path)
	if !errors.Is(err, dictionary.ErrSyntax) || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("err=%v, want syntax error on line 2", err)
	}

	if got, want := n, 1; got != want {
		t.Fatalf("added=%d, want=%d", got, want)
	}
}

func FuzzQuote_Load_Round_Trip(f *testing.F) {
	f.Add("GET")
	f.Add("\x00\"\\")

	f.Fuzz(func(t *testing.T, token string) {
		d := dictionary.New(0)

		if _, err := d.Load(strings.NewReader(dictionary.Quote(token))); err != nil {
			t.Fatalf("Load(Quote(%q)): %v", token, err)
		}

		if got := d.Tokens(); len(got) != 1 || got[0] != token {
			t.Fatalf("tokens=%q, want=[%q]", got, token)
		}
	})
}
