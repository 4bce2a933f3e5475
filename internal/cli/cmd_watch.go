package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/internal/builtin"
	"github.com/calvinalkan/harnesskit/internal/config"
	hfs "github.com/calvinalkan/harnesskit/pkg/fs"
)

// WatchCmd returns the watch command.
func WatchCmd(cfg *config.Config, log *zap.Logger) *Command {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	name := flags.String("harness", "mixed", "Built-in harness to run")
	loops := flags.Int("loops", cfg.Loops, "Operations per input for looping harnesses")
	maxLen := flags.Int("max-len", cfg.MaxLen, "Truncate inputs to this many bytes")

	return &Command{
		Flags: flags,
		Usage: "watch [flags] [dir...]",
		Short: "Replay inputs as they appear in directories",
		Long: `Watch directories (default: the corpus directory) and replay every file
created or written there through a built-in harness, like run does. Identical
contents are replayed once. Stops on interrupt and exits 1 if any defect was
found.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			h, err := builtin.Lookup(*name)
			if err != nil {
				return err
			}

			if *loops < 1 || *maxLen < 1 {
				return fmt.Errorf("%w: --loops and --max-len must be positive", config.ErrOutOfRange)
			}

			if len(args) == 0 {
				args = []string{cfg.CorpusDirAbs}
			}

			dirs := make([]string, 0, len(args))
			for _, a := range args {
				dirs = append(dirs, resolvePath(cfg, a))
			}

			r := &replayer{cfg: cfg, log: log, harness: h, jobs: 1, loops: *loops, maxLen: *maxLen}

			return r.watch(ctx, o, dirs, nil)
		},
	}
}

// watch replays files created or written in dirs until ctx is done.
// ready, if set, is called once every directory is being watched.
func (r *replayer) watch(ctx context.Context, o *IO, dirs []string, ready func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		err = watcher.Add(dir)
		if err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}

		r.log.Debug("watching", zap.String("dir", dir))
	}

	scratch, cleanup, err := r.scratchDir()
	if err != nil {
		return err
	}
	defer cleanup()

	if ready != nil {
		ready()
	}

	var (
		disk    = hfs.NewReal()
		seen    = make(map[[32]byte]bool)
		runs    = 0
		defects = 0
	)

	for {
		select {
		case <-ctx.Done():
			o.Printf("ran %d inputs through %s: %d defects\n", runs, r.harness.Name, defects)

			if defects > 0 {
				return errDefectsFound
			}

			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			r.log.Warn("watch error", zap.Error(err))

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			data, err := readRegular(disk, event.Name)
			if err != nil {
				r.log.Debug("skipping event", zap.String("event", event.String()), zap.Error(err))

				continue
			}

			if len(data) > r.maxLen {
				data = data[:r.maxLen]
			}

			sum := blake3.Sum256(data)
			if seen[sum] {
				continue
			}

			seen[sum] = true

			finding, err := r.replay(scratch, uint64(runs), data)
			if err != nil {
				return err
			}

			runs++

			if finding == nil {
				continue
			}

			defects++

			err = r.report(o, disk, replayResult{path: event.Name, data: data, err: finding})
			if err != nil {
				return err
			}
		}
	}
}

var errNotRegular = errors.New("not a regular file")

func readRegular(fsys hfs.FS, path string) ([]byte, error) {
	info, err := fsys.Lstat(path)
	if err != nil {
		return nil, err
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", errNotRegular, path)
	}

	return fsys.ReadFile(path)
}
