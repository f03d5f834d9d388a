package matrix

import "github.com/rubyci/matrixgen/internal/rubyver"

// IncludeList is the `{include: [...]}` job-list shape the CI orchestrator expects.
type IncludeList struct {
	Include []Entry `json:"include"`
}

// Output aggregates the four section job lists with the catalog summaries. Key names are
// an external contract with the orchestrator and must stay byte-stable.
type Output struct {
	LintMatrix       IncludeList `json:"lint-matrix"`
	FrameworksMatrix IncludeList `json:"frameworks-matrix"`
	RailtiesMatrix   IncludeList `json:"railties-matrix"`
	IsolatedMatrix   IncludeList `json:"isolated-matrix"`
	RuntimeDefault   string      `json:"runtime-default"`
	RuntimeSupported []string    `json:"runtime-supported"`
}

// Pair is one top-level output key with its value, used by the CI output channel which
// needs one key=value line per key in a fixed order.
type Pair struct {
	Key   string
	Value any
}

// Assemble combines the section outputs and catalog summaries. Pure aggregation, no
// further validation.
func Assemble(lint, frameworks, railties, isolated []Entry, catalog *rubyver.Catalog) *Output {
	supported := catalog.Supported
	if supported == nil {
		supported = []string{}
	}

	return &Output{
		LintMatrix:       IncludeList{Include: orEmpty(lint)},
		FrameworksMatrix: IncludeList{Include: orEmpty(frameworks)},
		RailtiesMatrix:   IncludeList{Include: orEmpty(railties)},
		IsolatedMatrix:   IncludeList{Include: orEmpty(isolated)},
		RuntimeDefault:   catalog.Default,
		RuntimeSupported: supported,
	}
}

// Pairs returns the top-level keys in their canonical order.
func (out *Output) Pairs() []Pair {
	return []Pair{
		{Key: "lint-matrix", Value: out.LintMatrix},
		{Key: "frameworks-matrix", Value: out.FrameworksMatrix},
		{Key: "railties-matrix", Value: out.RailtiesMatrix},
		{Key: "isolated-matrix", Value: out.IsolatedMatrix},
		{Key: "runtime-default", Value: out.RuntimeDefault},
		{Key: "runtime-supported", Value: out.RuntimeSupported},
	}
}

func orEmpty(entries []Entry) []Entry {
	if entries == nil {
		return []Entry{}
	}

	return entries
}
