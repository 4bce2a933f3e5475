package builtin

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/harness"
	"github.com/calvinalkan/harnesskit/pkg/serialize"
)

// Record is the value round-tripped by [SerializeRecord].
type Record struct {
	Name  string   `msgpack:"name"`
	Count int64    `msgpack:"count"`
	Tags  []string `msgpack:"tags"`
	On    bool     `msgpack:"on"`
	Data  []byte   `msgpack:"data"`
}

const maxRecordField = 64

// RecordCodec returns the msgpack round-trip tester behind [SerializeRecord].
func RecordCodec() *serialize.Tester[Record, []byte] {
	return &serialize.Tester[Record, []byte]{
		Encode: func(r Record) ([]byte, bool) {
			// Empty and nil slices decode alike; encode them alike too.
			if len(r.Tags) == 0 {
				r.Tags = nil
			}

			if len(r.Data) == 0 {
				r.Data = nil
			}

			b, err := msgpack.Marshal(&r)

			return b, err == nil
		},
		Decode: func(b []byte) (Record, bool) {
			var r Record

			err := msgpack.Unmarshal(b, &r)

			return r, err == nil
		},
		CmpOptions: []cmp.Option{cmpopts.EquateEmpty()},
	}
}

// SerializeRecord round-trips a small struct through msgpack. Starting from
// bytes, the rest of the input is the msgpack document.
func SerializeRecord(Env) harness.Func {
	t := RecordCodec()

	rest := func(c *datasource.Cursor) ([]byte, error) {
		return c.Rest(), nil
	}

	return func(c *datasource.Cursor) error {
		return t.Run(c, decodeRecord, rest)
	}
}

func decodeRecord(c *datasource.Cursor) (Record, error) {
	var (
		r   Record
		err error
	)

	r.Name, err = c.String(maxRecordField)
	if err != nil {
		return r, err
	}

	r.Count, err = c.Int64()
	if err != nil {
		return r, err
	}

	r.Tags, err = datasource.List(c, func(c *datasource.Cursor) (string, error) {
		return c.String(maxRecordField)
	})
	if err != nil {
		return r, err
	}

	r.On, err = c.Bool()
	if err != nil {
		return r, err
	}

	r.Data, err = c.Bytes(maxRecordField)

	return r, err
}
