package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/harnesskit/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("corpus_dir=" + cfg.CorpusDirAbs)
	io.Println("artifact_dir=" + cfg.ArtifactDirAbs)

	if cfg.WorkDirAbs != "" {
		io.Println("work_dir=" + cfg.WorkDirAbs)
	}

	if len(cfg.DictsAbs) > 0 {
		io.Println("dicts=" + strings.Join(cfg.DictsAbs, ","))
	}

	io.Println("max_len=" + strconv.Itoa(cfg.MaxLen))
	io.Println("loops=" + strconv.Itoa(cfg.Loops))
	io.Println("max_depth=" + strconv.Itoa(cfg.MaxDepth))
	io.Println("jobs=" + strconv.Itoa(cfg.Jobs))
	io.Println("log_level=" + cfg.LogLevel)

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
