package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/pkg/dictionary"
)

// DictCmd returns the dict command.
func DictCmd(log *zap.Logger) *Command {
	return &Command{
		Flags: flag.NewFlagSet("dict", flag.ContinueOnError),
		Usage: "dict <file>...",
		Short: "Merge fuzzing dictionaries",
		Long: `Parse one or more libFuzzer/AFL dictionaries, drop duplicate tokens and
print the result in dictionary syntax, one quoted token per line.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: dict needs at least one file", errUsage)
			}

			d := dictionary.New(0)

			for _, path := range args {
				n, err := d.LoadFile(path)
				if err != nil {
					return err
				}

				log.Info("dictionary merged", zap.String("path", path), zap.Int("new_tokens", n))
			}

			var buf strings.Builder

			_, err := d.WriteTo(&buf)
			if err != nil {
				return err
			}

			o.Printf("%s", buf.String())

			return nil
		},
	}
}
