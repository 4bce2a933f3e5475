package config

import "errors"

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrCorpusDirEmpty     = errors.New("corpus_dir cannot be empty")
	ErrArtifactDirEmpty   = errors.New("artifact_dir cannot be empty")
	ErrOutOfRange         = errors.New("value out of range")
	ErrLogLevel           = errors.New("unknown log level")
)
