// Package view renders the assembled matrix output to the CI provider's output channel
// and to standard output.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rubyci/matrixgen/internal/errors"
	"github.com/rubyci/matrixgen/internal/matrix"
	"github.com/rubyci/matrixgen/pkg/log"
)

// githubOutputEnvVar names the file GitHub Actions reads step outputs from.
const githubOutputEnvVar = "GITHUB_OUTPUT"

// Writer writes the final output object. When the CI output channel is available, each
// top-level key is appended as one `key=json` line; the whole object is always rendered
// to Stdout as well, pretty-printed when attached to a terminal.
type Writer struct {
	Stdout    io.Writer
	LookupEnv func(key string) (string, bool)
	Logger    log.Logger
}

// Write renders the output object.
func (writer *Writer) Write(out *matrix.Output) error {
	if path, ok := writer.LookupEnv(githubOutputEnvVar); ok {
		if err := writer.appendOutputFile(path, out); err != nil {
			return err
		}

		writer.Logger.Debugf("Wrote %d matrix outputs to %s", len(out.Pairs()), path)
	}

	return writer.writeStdout(out)
}

func (writer *Writer) appendOutputFile(path string, out *matrix.Output) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStackTraceAndPrefix(err, "opening CI output file %s", path)
	}
	defer file.Close()

	for _, pair := range out.Pairs() {
		data, err := json.Marshal(pair.Value)
		if err != nil {
			return errors.WithStackTrace(err)
		}

		if _, err := fmt.Fprintf(file, "%s=%s\n", pair.Key, data); err != nil {
			return errors.WithStackTraceAndPrefix(err, "writing CI output file %s", path)
		}
	}

	return nil
}

func (writer *Writer) writeStdout(out *matrix.Output) error {
	var (
		data []byte
		err  error
	)

	if writer.prettyPrint() {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}

	if err != nil {
		return errors.WithStackTrace(err)
	}

	if _, err := fmt.Fprintln(writer.Stdout, string(data)); err != nil {
		return errors.WithStackTrace(err)
	}

	return nil
}

func (writer *Writer) prettyPrint() bool {
	file, ok := writer.Stdout.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
