package cli_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rubyci/matrixgen/cli"
	"github.com/rubyci/matrixgen/internal/errors"
	"github.com/rubyci/matrixgen/internal/matrix"
	"github.com/rubyci/matrixgen/options"
	"github.com/rubyci/matrixgen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
lint:
  ruby: default
  tasks:
    - name: rubocop
      command: bin/rubocop

frameworks:
  ruby: [all]
  defaults:
    task: test
  entries:
    - name: activerecord-mysql
      task: "db:mysql:test"
      image: "mariadb:10.11"
      services: extended
    - name: actionpack

railties:
  ruby: [supported]
  shards: [1, 2]
  suites:
    - name: railties

isolated:
  ruby: default
  suites:
    - name: activerecord-isolated
      command: bin/test-isolated
      requirement: ">= 9.0"
`

func writeTestProject(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()

	configPath := filepath.Join(dir, "ci.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

	projectRoot := filepath.Join(dir, "project")
	require.NoError(t, os.Mkdir(projectRoot, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectRoot, "RAILS_VERSION"), []byte("7.2.0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(projectRoot, "rails.gemspec"), []byte(`
Gem::Specification.new do |s|
  s.required_ruby_version = ">= 3.0"
end
`), 0644))

	return configPath, projectRoot
}

func newTestRunOptions(stdout io.Writer, env map[string]string) *options.RunOptions {
	return &options.RunOptions{
		Logger:    log.New(log.WithOutput(io.Discard)),
		Writer:    stdout,
		ErrWriter: io.Discard,
		LookupEnv: func(key string) (string, bool) {
			val, ok := env[key]
			return val, ok
		},
	}
}

func TestAppWrongArityIsUsageError(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"matrixgen"},
		{"matrixgen", "only-one"},
		{"matrixgen", "one", "two", "three"},
	} {
		stdout := &bytes.Buffer{}
		app := cli.NewApp(newTestRunOptions(stdout, nil))

		err := app.Run(args)
		require.Error(t, err, "args: %v", args)

		var usageErr cli.UsageError
		assert.True(t, errors.As(err, &usageErr), "args: %v", args)
		assert.Empty(t, stdout.String(), "a usage error must produce no output")
	}
}

func TestAppGeneratesMatrices(t *testing.T) {
	t.Parallel()

	configPath, projectRoot := writeTestProject(t)

	stdout := &bytes.Buffer{}
	opts := newTestRunOptions(stdout, map[string]string{
		options.EnvVarExtraRubies: "3.1",
	})

	app := cli.NewApp(opts)
	require.NoError(t, app.Run([]string{"matrixgen", configPath, projectRoot}))

	out := &matrix.Output{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), out))

	// RAILS_VERSION 7.2.0 puts the maximum safe ruby at 3.3, so 3.4 is soft-fail.
	assert.Equal(t, "3.3", out.RuntimeDefault)
	assert.Equal(t, []string{"3.3", "3.2", "3.1", "3.0"}, out.RuntimeSupported)

	require.Len(t, out.LintMatrix.Include, 1)
	assert.Equal(t, "rubocop (3.3)", out.LintMatrix.Include[0]["name"])

	// 2 entries x 5 rubies (all).
	require.Len(t, out.FrameworksMatrix.Include, 10)
	first := out.FrameworksMatrix.Include[0]
	assert.Equal(t, "activerecord-mysql (3.4)", first["name"])
	assert.Equal(t, true, first["allow_failure"])
	assert.Contains(t, first["services"], "mariadb:10.11")

	// The defaults sub-map fills the task for the second entry.
	assert.Equal(t, "test", out.FrameworksMatrix.Include[5]["task"])

	// 4 supported rubies x 2 shards.
	require.Len(t, out.RailtiesMatrix.Include, 8)
	assert.Equal(t, float64(2), out.RailtiesMatrix.Include[1]["shard"])
	assert.Equal(t, float64(2), out.RailtiesMatrix.Include[1]["total_shards"])
	assert.Equal(t, float64(1), out.RailtiesMatrix.Include[1]["index"])

	// The isolated suite requirement >= 9.0 is not met by framework 7.2.0.
	assert.Empty(t, out.IsolatedMatrix.Include)
}

func TestAppWritesCIOutputChannel(t *testing.T) {
	t.Parallel()

	configPath, projectRoot := writeTestProject(t)
	outputPath := filepath.Join(t.TempDir(), "github_output")

	opts := newTestRunOptions(&bytes.Buffer{}, map[string]string{
		"GITHUB_OUTPUT": outputPath,
	})

	app := cli.NewApp(opts)
	require.NoError(t, app.Run([]string{"matrixgen", configPath, projectRoot}))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	assert.Contains(t, string(data), "lint-matrix={\"include\":")
	assert.Contains(t, string(data), "runtime-default=\"3.3\"")
}

func TestAppMissingConfigIsFatal(t *testing.T) {
	t.Parallel()

	_, projectRoot := writeTestProject(t)

	app := cli.NewApp(newTestRunOptions(&bytes.Buffer{}, nil))

	err := app.Run([]string{"matrixgen", filepath.Join(t.TempDir(), "missing.yml"), projectRoot})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading CI config")
}

func TestAppMalformedItemAbortsRun(t *testing.T) {
	t.Parallel()

	_, projectRoot := writeTestProject(t)

	configPath := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
lint:
  tasks:
    - name: no-command
`), 0644))

	stdout := &bytes.Buffer{}
	app := cli.NewApp(newTestRunOptions(stdout, nil))

	err := app.Run([]string{"matrixgen", configPath, projectRoot})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field")
	assert.Empty(t, stdout.String())
}
