package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/harnesskit/internal/builtin"
)

// HarnessesCmd returns the harnesses command.
func HarnessesCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("harnesses", flag.ContinueOnError),
		Usage: "harnesses",
		Short: "List built-in harnesses",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			for _, h := range builtin.All() {
				o.Printf("%-18s %s\n", h.Name, h.Short)
			}

			return nil
		},
	}
}
