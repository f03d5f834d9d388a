// Package cli wires the matrixgen command-line interface.
package cli

import (
	"fmt"

	"github.com/rubyci/matrixgen/internal/errors"
	"github.com/rubyci/matrixgen/options"
	"github.com/rubyci/matrixgen/pkg/log"
	"github.com/urfave/cli/v2"
)

// Version is overridden at release build time via -ldflags.
var Version = "dev"

const (
	appName      = "matrixgen"
	appUsageText = "matrixgen [global options] <ci-config-path> <project-root>"
)

// NewApp creates the matrixgen CLI app.
func NewApp(opts *options.RunOptions) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Generate the CI job matrices for testing the framework against combinations of ruby versions, dependency variants, and test shards."
	app.UsageText = appUsageText
	app.Version = Version
	app.Writer = opts.Writer
	app.ErrWriter = opts.ErrWriter
	app.HideHelpCommand = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Set the log level: error, warn, info, debug, trace.",
			EnvVars: []string{options.EnvVarLogLevel},
			Value:   log.InfoLevel.String(),
		},
	}
	app.Action = func(ctx *cli.Context) error {
		if err := opts.Logger.SetLevel(ctx.String("log-level")); err != nil {
			return errors.WithStackTrace(err)
		}

		if ctx.NArg() != 2 {
			return errors.WithStackTrace(UsageError{Got: ctx.NArg()})
		}

		opts.ConfigPath = ctx.Args().Get(0)
		opts.ProjectRoot = ctx.Args().Get(1)

		return Run(opts)
	}

	return app
}

// UsageError means the app was invoked with the wrong number of positional arguments.
// It is fatal and produces no matrix output.
type UsageError struct {
	Got int
}

func (err UsageError) Error() string {
	return fmt.Sprintf("expected exactly 2 arguments (usage: %s), got %d", appUsageText, err.Got)
}
