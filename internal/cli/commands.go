package cli

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/internal/config"
)

// allCommands returns every command in help order.
func allCommands(cfg *config.Config, env map[string]string, log *zap.Logger) []*Command {
	return []*Command{
		RunCmd(cfg, log),
		WatchCmd(cfg, log),
		MutateCmd(cfg, log),
		DictCmd(log),
		DecodeCmd(cfg),
		ExploreCmd(cfg, env),
		HarnessesCmd(),
		PrintConfigCmd(cfg),
	}
}

// resolvePath resolves a command argument against the effective working
// directory.
func resolvePath(cfg *config.Config, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(cfg.EffectiveCwd, path)
}
