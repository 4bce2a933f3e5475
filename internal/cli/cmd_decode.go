package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/harnesskit/internal/config"
	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fs"
)

var errUsage = errors.New("missing arguments")

// DecodeCmd returns the decode command.
func DecodeCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("decode", flag.ContinueOnError),
		Usage: "decode <file|-> <op>...",
		Short: "Decode a file with a sequence of cursor reads",
		Long: `Decode a file the way a harness would, one cursor read per op, and print
each value with the offset it was read from.

A file of "-" reads stdin.

Ops: u8 u16 u32 u64 i8 i16 i32 i64 f32 f64 bool choice str[:max]
bytes[:max] strs list rest`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("%w: decode needs a file and at least one op", errUsage)
			}

			var (
				data []byte
				err  error
			)

			if args[0] == "-" {
				data, err = o.ReadStdin()
			} else {
				data, err = fs.NewReal().ReadFile(resolvePath(cfg, args[0]))
			}

			if err != nil {
				return err
			}

			return execDecode(o, datasource.New(data), args[1:])
		},
	}
}

func execDecode(o *IO, c *datasource.Cursor, specs []string) error {
	for _, spec := range specs {
		pos := c.Position()

		v, err := applyOp(c, spec)
		if err != nil {
			return fmt.Errorf("%s at offset %d: %w", spec, pos, err)
		}

		o.Printf("@%d %s = %s\n", pos, spec, v)
	}

	o.Printf("remaining %d bytes\n", c.Remaining())

	return nil
}
