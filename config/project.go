package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/rubyci/matrixgen/internal/errors"
	"github.com/rubyci/matrixgen/pkg/log"
)

const (
	// FrameworkVersionFile is the plain-text file at the project root holding the
	// framework version under test. Its absence makes every requirement match.
	FrameworkVersionFile = "RAILS_VERSION"

	// DefaultMinimumRuby is the floor used when the gemspec carries no parseable
	// required_ruby_version declaration.
	DefaultMinimumRuby = "2.7"
)

// requiredRubyRegexp extracts the minimum ruby version from a gemspec, e.g.
//
//	s.required_ruby_version = ">= 3.1.0"
var requiredRubyRegexp = regexp.MustCompile(`required_ruby_version\s*=\s*["'][^"'\d]*(\d+(?:\.\d+)*)`)

// leadingVersionRegexp pulls the numeric part out of a version string, dropping
// prerelease suffixes such as "7.2.0.alpha".
var leadingVersionRegexp = regexp.MustCompile(`\d+(?:\.\d+)*`)

// ProjectMetadata is the target-project state discovered at startup: the framework
// version (may be absent) and the minimum supported ruby version (never absent).
type ProjectMetadata struct {
	FrameworkVersion *version.Version
	MinimumRuby      *version.Version
}

// LoadProjectMetadata reads the framework version file and the gemspec manifest from the
// given project root.
func LoadProjectMetadata(root string, logger log.Logger) (*ProjectMetadata, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "reading project root")
	}

	if !info.IsDir() {
		return nil, errors.Errorf("project root %s is not a directory", root)
	}

	minimum, err := readMinimumRuby(root, logger)
	if err != nil {
		return nil, err
	}

	return &ProjectMetadata{
		FrameworkVersion: readFrameworkVersion(root, logger),
		MinimumRuby:      minimum,
	}, nil
}

func readFrameworkVersion(root string, logger log.Logger) *version.Version {
	path := filepath.Join(root, FrameworkVersionFile)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debugf("No %s file found at %s, all framework version requirements will match", FrameworkVersionFile, root)
		return nil
	}

	raw := strings.TrimSpace(string(data))

	numeric := leadingVersionRegexp.FindString(raw)
	if numeric == "" {
		logger.Warnf("Unable to parse framework version %q from %s, treating it as unknown", raw, path)
		return nil
	}

	discovered, err := version.NewVersion(numeric)
	if err != nil {
		logger.Warnf("Unable to parse framework version %q from %s, treating it as unknown", raw, path)
		return nil
	}

	logger.Debugf("Discovered framework version %s", discovered)

	return discovered
}

func readMinimumRuby(root string, logger log.Logger) (*version.Version, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.gemspec"))
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	if len(matches) == 0 {
		return nil, errors.WithStackTrace(ManifestNotFoundError{Root: root})
	}

	sort.Strings(matches)
	path := matches[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "reading manifest %s", path)
	}

	if match := requiredRubyRegexp.FindSubmatch(data); match != nil {
		if minimum, err := version.NewVersion(string(match[1])); err == nil {
			logger.Debugf("Minimum ruby version %s declared in %s", minimum, path)
			return minimum, nil
		}
	}

	logger.Warnf("No parseable required_ruby_version declaration in %s, falling back to %s", path, DefaultMinimumRuby)

	return version.Must(version.NewVersion(DefaultMinimumRuby)), nil
}

// ManifestNotFoundError means the project root contains no gemspec manifest at all.
type ManifestNotFoundError struct {
	Root string
}

func (err ManifestNotFoundError) Error() string {
	return fmt.Sprintf("no *.gemspec manifest found in project root %s", err.Root)
}
