package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/harnesskit/internal/builtin"
	"github.com/calvinalkan/harnesskit/internal/config"
	hfs "github.com/calvinalkan/harnesskit/pkg/fs"
	"github.com/calvinalkan/harnesskit/pkg/harness"
)

// RunCmd returns the run command.
func RunCmd(cfg *config.Config, log *zap.Logger) *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	name := flags.String("harness", "mixed", "Built-in harness to run")
	jobs := flags.IntP("jobs", "j", cfg.Jobs, "Inputs replayed in parallel")
	loops := flags.Int("loops", cfg.Loops, "Operations per input for looping harnesses")
	maxLen := flags.Int("max-len", cfg.MaxLen, "Truncate inputs to this many bytes")
	chaos := flags.Float64("chaos", 0, "Probability of injected write failures in filesystem harnesses")

	return &Command{
		Flags: flags,
		Usage: "run [flags] [path...]",
		Short: "Replay inputs through a built-in harness",
		Long: `Replay files, or directories of files, through a built-in harness.
Without paths the configured corpus directory is used.

Every input gets its own scratch directory. Inputs that reveal a defect are
reported and copied to the artifact directory as crash-<blake3 hash>.
Exits 1 if any defect was found.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			h, err := builtin.Lookup(*name)
			if err != nil {
				return err
			}

			if *jobs < 1 || *loops < 1 || *maxLen < 1 {
				return fmt.Errorf("%w: --jobs, --loops and --max-len must be positive", config.ErrOutOfRange)
			}

			if *chaos < 0 || *chaos > 1 {
				return fmt.Errorf("%w: --chaos must be within 0..1", config.ErrOutOfRange)
			}

			r := &replayer{
				cfg:     cfg,
				log:     log,
				harness: h,
				jobs:    *jobs,
				loops:   *loops,
				maxLen:  *maxLen,
				chaos:   *chaos,
			}

			return r.run(ctx, o, args)
		},
	}
}

type replayer struct {
	cfg     *config.Config
	log     *zap.Logger
	harness builtin.Harness
	jobs    int
	loops   int
	maxLen  int
	chaos   float64
}

type replayResult struct {
	path string
	data []byte
	err  error
}

func (r *replayer) run(ctx context.Context, o *IO, args []string) error {
	if len(args) == 0 {
		args = []string{r.cfg.CorpusDirAbs}
	}

	files, err := collectInputs(r.cfg, args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		o.Warn("no inputs found", "pass files or populate "+r.cfg.CorpusDirAbs)

		return nil
	}

	scratch, cleanup, err := r.scratchDir()
	if err != nil {
		return err
	}
	defer cleanup()

	disk := hfs.NewReal()
	results := make([]replayResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			data, err := disk.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			if len(data) > r.maxLen {
				data = data[:r.maxLen]
			}

			finding, err := r.replay(scratch, uint64(i), data)
			if err != nil {
				return err
			}

			results[i] = replayResult{path: path, data: data, err: finding}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return err
	}

	defects := 0

	for _, res := range results {
		if res.err == nil {
			continue
		}

		defects++

		err := r.report(o, disk, res)
		if err != nil {
			return err
		}
	}

	o.Printf("ran %d inputs through %s: %d defects\n", len(files), r.harness.Name, defects)

	if defects > 0 {
		return errDefectsFound
	}

	return nil
}

// report prints a defect and saves its input as an artifact.
func (r *replayer) report(o *IO, disk hfs.FS, res replayResult) error {
	artifact, err := r.saveArtifact(disk, res.data)
	if err != nil {
		return err
	}

	o.Defectf("DEFECT %s: %s", res.path, firstLine(res.err.Error()))
	o.Println("  saved", artifact)
	r.log.Debug("defect", zap.String("input", res.path), zap.Error(res.err))

	return nil
}

// replay runs one input inside a fresh directory below scratch. It returns
// the defect found, if any, and separately any failure to set up the run.
func (r *replayer) replay(scratch string, seed uint64, data []byte) (finding, err error) {
	base := filepath.Join(scratch, uuid.NewString())

	disk := hfs.NewReal()

	err = disk.MkdirAll(base, 0o700)
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	defer func() { _ = disk.RemoveAll(base) }()

	var fsys hfs.FS = disk
	if r.chaos > 0 {
		fsys = hfs.NewChaos(disk, seed, hfs.WriteOnly(r.chaos))
	}

	env := builtin.Env{
		FS:        fsys,
		ArchiveFS: disk,
		Base:      base,
		MaxDepth:  r.cfg.MaxDepth,
		Loops:     r.loops,
		Logger:    r.log,
	}

	return harness.Check(data, r.harness.New(env)), nil
}

// scratchDir returns the configured work directory, or a temporary one that
// cleanup removes.
func (r *replayer) scratchDir() (string, func(), error) {
	if r.cfg.WorkDirAbs != "" {
		err := os.MkdirAll(r.cfg.WorkDirAbs, 0o700)
		if err != nil {
			return "", nil, fmt.Errorf("creating work dir: %w", err)
		}

		return r.cfg.WorkDirAbs, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "harnesskit-")
	if err != nil {
		return "", nil, fmt.Errorf("creating work dir: %w", err)
	}

	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func (r *replayer) saveArtifact(fsys hfs.FS, data []byte) (string, error) {
	err := fsys.MkdirAll(r.cfg.ArtifactDirAbs, 0o750)
	if err != nil {
		return "", fmt.Errorf("creating artifact dir: %w", err)
	}

	path := filepath.Join(r.cfg.ArtifactDirAbs, ArtifactName(data))

	err = fsys.WriteFileAtomic(path, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("saving artifact: %w", err)
	}

	return path, nil
}

// ArtifactName returns the content-addressed file name of a crash input.
func ArtifactName(data []byte) string {
	sum := blake3.Sum256(data)

	return "crash-" + hex.EncodeToString(sum[:])
}

// collectInputs expands args into a sorted list of regular files.
// Directories are walked recursively.
func collectInputs(cfg *config.Config, args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		arg = resolvePath(cfg, arg)

		err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.Type().IsRegular() {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("input not found: %s", arg)
			}

			return nil, fmt.Errorf("collecting inputs: %w", err)
		}
	}

	slices.Sort(files)

	return slices.Compact(files), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}
