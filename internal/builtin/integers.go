package builtin

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/differential"
	"github.com/calvinalkan/harnesskit/pkg/harness"
	"github.com/calvinalkan/harnesskit/pkg/serialize"
)

// maxIntText bounds decoded integer text. Longer text cannot be an int64.
const maxIntText = 32

// SerializeInt round-trips int64 values through their decimal text.
func SerializeInt(Env) harness.Func {
	t := &serialize.Tester[int64, []byte]{
		Encode: func(v int64) ([]byte, bool) {
			return strconv.AppendInt(nil, v, 10), true
		},
		Decode: func(b []byte) (int64, bool) {
			v, err := strconv.ParseInt(string(b), 10, 64)

			return v, err == nil
		},
		CmpOptions: []cmp.Option{cmpopts.EquateEmpty()},
	}

	decodeText := func(c *datasource.Cursor) ([]byte, error) {
		return c.Bytes(maxIntText)
	}

	return func(c *datasource.Cursor) error {
		return t.Run(c, (*datasource.Cursor).Int64, decodeText)
	}
}

// IntParsers are the targets compared by [DifferentialInt], in order.
func IntParsers() []differential.Target[string, int64] {
	return []differential.Target[string, int64]{
		differential.Func[string, int64]{Label: "strconv", Fn: parseStrconv},
		differential.Func[string, int64]{Label: "json", Fn: parseJSON},
		differential.Func[string, int64]{Label: "big", Fn: parseBig},
		differential.Func[string, int64]{Label: "toml", Fn: parseTOML},
	}
}

// DifferentialInt checks that every parser accepting a string yields the
// same value. Inputs carry several rounds.
func DifferentialInt(env Env) harness.Func {
	t := differential.New(
		func(c *datasource.Cursor) (string, error) { return c.String(maxIntText) },
		differential.Options[int64]{Multi: true, Logger: env.logger()},
		IntParsers()...,
	)

	return t.Run
}

func parseStrconv(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)

	return v, err == nil
}

func parseJSON(s string) (int64, bool) {
	var v int64

	err := json.Unmarshal([]byte(s), &v)

	return v, err == nil
}

func parseBig(s string) (int64, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || !v.IsInt64() {
		return 0, false
	}

	return v.Int64(), true
}

func parseTOML(s string) (int64, bool) {
	var doc struct {
		V int64 `toml:"v"`
	}

	md, err := toml.Decode("v = "+s, &doc)
	if err != nil || !md.IsDefined("v") {
		return 0, false
	}

	return doc.V, true
}
