// Package config loads harnesskit settings from JSONC files, the
// environment and command-line overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	CorpusDir   string   `json:"corpus_dir"`
	ArtifactDir string   `json:"artifact_dir"`
	WorkDir     string   `json:"work_dir,omitempty"`
	Dicts       []string `json:"dicts,omitempty"`
	MaxLen      int      `json:"max_len"`
	Loops       int      `json:"loops"`
	MaxDepth    int      `json:"max_depth"`
	Jobs        int      `json:"jobs"`
	LogLevel    string   `json:"log_level"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd   string   `json:"-"`
	CorpusDirAbs   string   `json:"-"`
	ArtifactDirAbs string   `json:"-"`
	WorkDirAbs     string   `json:"-"` // scratch root for filesystem harnesses
	DictsAbs       []string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Limits enforced by validation.
const (
	maxMaxLen = 1 << 24
	maxJobs   = 256
	maxLoops  = 1 << 16
	maxDepth  = 4096
)

// LogLevels lists the accepted values of log_level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CorpusDir:   "corpus",
		ArtifactDir: "artifacts",
		MaxLen:      4096,
		Loops:       16,
		MaxDepth:    64,
		Jobs:        1,
		LogLevel:    "warn",
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".harnesskit.json"

// globalConfigPath returns $XDG_CONFIG_HOME/harnesskit/config.json if set,
// otherwise ~/.config/harnesskit/config.json, or "" without a home.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "harnesskit", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "harnesskit", "config.json")
	}

	return ""
}

// Overrides carries values set on the command line. Nil fields are unset.
type Overrides struct {
	CorpusDir   *string
	ArtifactDir *string
	WorkDir     *string
	Dicts       []string // appended to the configured list
	MaxLen      *int
	Loops       *int
	MaxDepth    *int
	Jobs        *int
	LogLevel    *string
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Overrides       Overrides         // command-line overrides
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/harnesskit/config.json)
// 3. Project config file (.harnesskit.json) or the explicit -c file
// 4. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	cwd := input.WorkDirOverride
	if cwd == "" {
		var err error

		cwd, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(cwd, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	cfg = apply(cfg, input.Overrides)

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = cwd
	cfg.CorpusDirAbs = absolute(cwd, cfg.CorpusDir)
	cfg.ArtifactDirAbs = absolute(cwd, cfg.ArtifactDir)

	if cfg.WorkDir != "" {
		cfg.WorkDirAbs = absolute(cwd, cfg.WorkDir)
	}

	cfg.DictsAbs = make([]string, 0, len(cfg.Dicts))
	for _, d := range cfg.Dicts {
		cfg.DictsAbs = append(cfg.DictsAbs, absolute(cwd, d))
	}

	return cfg, nil
}

func absolute(cwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(cwd, path)
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads .harnesskit.json from cwd, or configPath when set.
// An explicit file must exist.
func loadProject(cwd, configPath string) (Config, string, error) {
	path := filepath.Join(cwd, ConfigFileName)
	mustExist := false

	if configPath != "" {
		path = absolute(cwd, configPath)
		mustExist = true

		_, statErr := os.Stat(path)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadFile(path, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile loads a config file. If mustExist is false, missing files
// return a zero config and loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, explicitEmpty, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	switch {
	case explicitEmpty["corpus_dir"]:
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrCorpusDirEmpty)
	case explicitEmpty["artifact_dir"]:
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrArtifactDirEmpty)
	}

	return cfg, true, nil
}

// parse standardizes JSONC and decodes it. It also reports which path
// fields were explicitly set to "", which json.Unmarshal cannot tell apart
// from absent ones.
func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	for _, key := range []string{"corpus_dir", "artifact_dir"} {
		if str, ok := raw[key].(string); ok && str == "" {
			explicitEmpty[key] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.CorpusDir != "" {
		base.CorpusDir = overlay.CorpusDir
	}

	if overlay.ArtifactDir != "" {
		base.ArtifactDir = overlay.ArtifactDir
	}

	if overlay.WorkDir != "" {
		base.WorkDir = overlay.WorkDir
	}

	if len(overlay.Dicts) > 0 {
		base.Dicts = overlay.Dicts
	}

	if overlay.MaxLen != 0 {
		base.MaxLen = overlay.MaxLen
	}

	if overlay.Loops != 0 {
		base.Loops = overlay.Loops
	}

	if overlay.MaxDepth != 0 {
		base.MaxDepth = overlay.MaxDepth
	}

	if overlay.Jobs != 0 {
		base.Jobs = overlay.Jobs
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}

func apply(cfg Config, o Overrides) Config {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}

	set(&cfg.CorpusDir, o.CorpusDir)
	set(&cfg.ArtifactDir, o.ArtifactDir)
	set(&cfg.WorkDir, o.WorkDir)
	set(&cfg.LogLevel, o.LogLevel)
	setInt(&cfg.MaxLen, o.MaxLen)
	setInt(&cfg.Loops, o.Loops)
	setInt(&cfg.MaxDepth, o.MaxDepth)
	setInt(&cfg.Jobs, o.Jobs)

	if len(o.Dicts) > 0 {
		cfg.Dicts = append(slices.Clone(cfg.Dicts), o.Dicts...)
	}

	return cfg
}

func validate(cfg Config) error {
	if cfg.CorpusDir == "" {
		return ErrCorpusDirEmpty
	}

	if cfg.ArtifactDir == "" {
		return ErrArtifactDirEmpty
	}

	checks := []struct {
		name  string
		value int
		limit int
	}{
		{"max_len", cfg.MaxLen, maxMaxLen},
		{"loops", cfg.Loops, maxLoops},
		{"max_depth", cfg.MaxDepth, maxDepth},
		{"jobs", cfg.Jobs, maxJobs},
	}

	for _, c := range checks {
		if c.value < 1 || c.value > c.limit {
			return fmt.Errorf("%w: %s=%d (want 1..%d)", ErrOutOfRange, c.name, c.value, c.limit)
		}
	}

	if !slices.Contains(LogLevels, cfg.LogLevel) {
		return fmt.Errorf("%w: %q", ErrLogLevel, cfg.LogLevel)
	}

	return nil
}
