// Package options provides the set of options that configure a matrixgen run.
package options

import (
	"io"
	"os"

	"github.com/rubyci/matrixgen/pkg/env"
	"github.com/rubyci/matrixgen/pkg/log"
)

const (
	// EnvVarLogLevel overrides the default log level.
	EnvVarLogLevel = "MATRIXGEN_LOG_LEVEL"

	// EnvVarExtraRubies supplies additional ruby version candidates as a whitespace or
	// comma separated list.
	EnvVarExtraRubies = "MATRIXGEN_EXTRA_RUBIES"
)

// RunOptions carries everything a run needs: the two input paths, the logger, the output
// writers, and the environment lookup (swappable in tests).
type RunOptions struct {
	// ConfigPath is the CI pipeline configuration document.
	ConfigPath string

	// ProjectRoot is the directory holding the framework version file and the gemspec
	// manifest.
	ProjectRoot string

	Logger    log.Logger
	Writer    io.Writer
	ErrWriter io.Writer

	// LookupEnv resolves environment variables. Defaults to the process environment.
	LookupEnv func(key string) (string, bool)
}

// NewRunOptions returns run options wired to the process environment.
func NewRunOptions() *RunOptions {
	return &RunOptions{
		Logger:    log.New(log.WithOutput(os.Stderr), log.WithLevel(log.InfoLevel)),
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		LookupEnv: env.LookupEnv,
	}
}
