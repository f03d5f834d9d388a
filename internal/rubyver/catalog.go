// Package rubyver resolves the set of ruby versions a run tests against: catalog
// construction, symbolic token expansion, and requirement matching.
package rubyver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/rubyci/matrixgen/internal/errors"
	"github.com/rubyci/matrixgen/pkg/log"
)

// DefaultCandidates is the built-in candidate list, unioned with environment extras and
// every version token referenced in the config document.
var DefaultCandidates = []string{"3.2", "3.3", "3.4"}

// numericVersionRegexp accepts dotted numeric version tokens only; symbolic tokens and
// malformed strings are dropped before parsing.
var numericVersionRegexp = regexp.MustCompile(`^v?\d+(\.\d+)*$`)

// Catalog is the classified set of ruby versions considered for a run. All lists are
// ordered descending; Supported and SoftFail partition All. Built once at startup and
// read-only afterwards.
type Catalog struct {
	All         []string
	Supported   []string
	SoftFail    []string
	Default     string
	SoftFailMap map[string]bool
}

// CatalogBuilder resolves candidate tokens into a Catalog.
type CatalogBuilder struct {
	// Minimum is the floor below which candidates are dropped.
	Minimum *version.Version

	// MaxSafe is the highest officially supported ruby for the framework version under
	// test; nil means unconstrained. Candidates above it are soft-fail unless they sit
	// inside its compatible-release band.
	MaxSafe *version.Version

	// Candidates is the raw union of all candidate sources, in any order, possibly with
	// duplicates and non-version tokens.
	Candidates []string

	Logger log.Logger
}

// Build filters, parses, deduplicates, orders, and classifies the candidates.
func (builder *CatalogBuilder) Build() (*Catalog, error) {
	type candidate struct {
		token  string
		parsed *version.Version
	}

	var candidates []candidate

	for _, token := range builder.Candidates {
		if !numericVersionRegexp.MatchString(token) {
			builder.Logger.Tracef("Skipping non-version candidate token %q", token)
			continue
		}

		parsed, err := version.NewVersion(token)
		if err != nil {
			builder.Logger.Tracef("Skipping unparseable candidate token %q: %s", token, err)
			continue
		}

		if builder.Minimum != nil && parsed.LessThan(builder.Minimum) {
			builder.Logger.Debugf("Dropping ruby %s: below minimum %s", token, builder.Minimum)
			continue
		}

		candidates = append(candidates, candidate{token: token, parsed: parsed})
	}

	if len(candidates) == 0 {
		return nil, errors.WithStackTrace(EmptyVersionCatalogError{Minimum: builder.Minimum})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].parsed.GreaterThan(candidates[j].parsed)
	})

	band := compatibleReleaseBand(builder.MaxSafe)

	catalog := &Catalog{SoftFailMap: map[string]bool{}}
	seen := map[string]bool{}

	for _, cand := range candidates {
		canonical := cand.parsed.String()
		if seen[canonical] {
			continue
		}

		seen[canonical] = true

		softFail := builder.MaxSafe != nil &&
			cand.parsed.GreaterThan(builder.MaxSafe) &&
			(band == nil || !band.Check(cand.parsed))

		catalog.All = append(catalog.All, cand.token)
		catalog.SoftFailMap[cand.token] = softFail

		if softFail {
			catalog.SoftFail = append(catalog.SoftFail, cand.token)
		} else {
			catalog.Supported = append(catalog.Supported, cand.token)
		}
	}

	// Prefer the highest supported ruby; with a pure soft-fail set fall back to the
	// highest candidate overall rather than blocking the run.
	if len(catalog.Supported) > 0 {
		catalog.Default = catalog.Supported[0]
	} else {
		catalog.Default = catalog.All[0]
	}

	return catalog, nil
}

// compatibleReleaseBand returns the pessimistic constraint covering releases compatible
// with the given maximum. A two-segment maximum is padded to three so that "3.3" yields
// "~> 3.3.0" (any 3.3 patch level) rather than admitting the next minor.
func compatibleReleaseBand(maxSafe *version.Version) version.Constraints {
	if maxSafe == nil {
		return nil
	}

	original := strings.TrimPrefix(maxSafe.Original(), "v")

	for strings.Count(original, ".") < 2 {
		original += ".0"
	}

	band, err := version.NewConstraint("~> " + original)
	if err != nil {
		return nil
	}

	return band
}

// EmptyVersionCatalogError means no candidate survived filtering, so no matrix can be
// produced.
type EmptyVersionCatalogError struct {
	Minimum *version.Version
}

func (err EmptyVersionCatalogError) Error() string {
	if err.Minimum == nil {
		return "no valid ruby version candidates found"
	}

	return fmt.Sprintf("no valid ruby version candidates at or above the minimum %s", err.Minimum)
}
