package main

import (
	"os"

	"github.com/rubyci/matrixgen/cli"
	"github.com/rubyci/matrixgen/internal/errors"
	"github.com/rubyci/matrixgen/options"
	"github.com/rubyci/matrixgen/pkg/log"
)

// The main entrypoint for matrixgen.
func main() {
	opts := options.NewRunOptions()

	defer errors.Recover(checkForErrorsAndExit(opts.Logger))

	app := cli.NewApp(opts)

	checkForErrorsAndExit(opts.Logger)(app.Run(os.Args))
}

// If there is an error, display it in the console and exit with a non-zero exit code.
// Otherwise exit 0.
func checkForErrorsAndExit(logger log.Logger) func(error) {
	return func(err error) {
		if err == nil {
			os.Exit(0)
		}

		logger.Error(err.Error())

		if errStack := errors.ErrorStack(err); errStack != "" {
			logger.Trace(errStack)
		}

		exitCode := 1

		var exitCodeErr errors.ErrorWithExitCode
		if errors.As(err, &exitCodeErr) {
			exitCode = exitCodeErr.ExitCode
		}

		os.Exit(exitCode)
	}
}
