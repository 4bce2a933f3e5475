package cli

import (
	"context"
	"fmt"
	"slices"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/internal/config"
	"github.com/calvinalkan/harnesskit/pkg/dictionary"
	"github.com/calvinalkan/harnesskit/pkg/fs"
	"github.com/calvinalkan/harnesskit/pkg/mutator"
)

// MutateCmd returns the mutate command.
func MutateCmd(cfg *config.Config, log *zap.Logger) *Command {
	flags := flag.NewFlagSet("mutate", flag.ContinueOnError)
	seed := flags.Uint32("seed", 0, "Mutation seed; odd seeds also run the length-prefix mutator")
	maxLen := flags.Int("max-len", cfg.MaxLen, "Maximum output size in bytes")
	dicts := flags.StringArray("dict", nil, "Dictionary `file` to splice tokens from (repeatable)")
	outPath := flags.StringP("output", "o", "", "Write the result to `file` instead of replacing the input")

	return &Command{
		Flags: flags,
		Usage: "mutate [flags] <file>",
		Short: "Apply the custom mutator to a file once",
		Long: `Run one custom mutation over a file the way a fuzzing engine would: a
generic byte mutation, then for odd seeds the length-prefix mutator, which
fixes 2-byte length prefixes and splices dictionary tokens.

Configured dictionaries are always loaded. The result is written atomically.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: mutate needs exactly one file", errUsage)
			}

			if *maxLen < 1 {
				return fmt.Errorf("%w: --max-len must be positive", config.ErrOutOfRange)
			}

			in := resolvePath(cfg, args[0])

			target := in
			if *outPath != "" {
				target = resolvePath(cfg, *outPath)
			}

			dictPaths := slices.Clone(cfg.DictsAbs)
			for _, d := range *dicts {
				dictPaths = append(dictPaths, resolvePath(cfg, d))
			}

			return execMutate(o, log, in, target, *seed, *maxLen, dictPaths)
		},
	}
}

func execMutate(o *IO, log *zap.Logger, in, out string, seed uint32, maxLen int, dictPaths []string) error {
	disk := fs.NewReal()

	data, err := disk.ReadFile(in)
	if err != nil {
		return err
	}

	data = data[:min(len(data), maxLen)]

	prefix := mutator.NewPrefix(uint64(seed))

	for _, path := range dictPaths {
		d := dictionary.New(uint64(seed))

		n, err := d.LoadFile(path)
		if err != nil {
			return err
		}

		log.Debug("dictionary loaded", zap.String("path", path), zap.Int("tokens", n))
		prefix.AddSource(d)
	}

	registry := mutator.NewRegistry(mutator.NewBytes(uint64(seed)))
	registry.Register(prefix)

	buf := make([]byte, maxLen)
	copy(buf, data)

	size := registry.CustomMutate(buf, len(data), maxLen, seed)

	err = disk.WriteFileAtomic(out, buf[:size], 0o644)
	if err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	o.Printf("wrote %d bytes to %s\n", size, out)

	return nil
}
