package matrix_test

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/rubyci/matrixgen/config"
	"github.com/rubyci/matrixgen/internal/matrix"
	"github.com/rubyci/matrixgen/internal/rubyver"
	"github.com/rubyci/matrixgen/internal/services"
	"github.com/rubyci/matrixgen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExpander(t *testing.T, framework string) *matrix.Expander {
	t.Helper()

	var fw *version.Version
	if framework != "" {
		fw = version.Must(version.NewVersion(framework))
	}

	return &matrix.Expander{
		Catalog: &rubyver.Catalog{
			All:       []string{"3.4", "3.3", "3.2"},
			Supported: []string{"3.3", "3.2"},
			SoftFail:  []string{"3.4"},
			Default:   "3.3",
			SoftFailMap: map[string]bool{
				"3.4": true,
			},
		},
		Framework: fw,
		Logger:    log.New(log.WithOutput(io.Discard)),
	}
}

func TestExpandSectionDefaultsToSectionTokens(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionLint,
		RubyTokens: []string{"supported"},
		Items: []config.Item{
			{Name: "rubocop", Fields: map[string]any{"name": "rubocop", "command": "bin/rubocop"}},
		},
	}

	entries, err := testExpander(t, "7.2.0").ExpandSection(sec, matrix.Lint)
	require.NoError(t, err)

	// No item tokens means exactly the section default token expansion.
	require.Len(t, entries, 2)
	assert.Equal(t, "3.3", entries[0]["ruby"])
	assert.Equal(t, "3.2", entries[1]["ruby"])
	assert.Equal(t, "rubocop (3.3)", entries[0]["name"])
	assert.Equal(t, "bin/rubocop", entries[0]["command"])
}

func TestExpandSectionRequirementFiltering(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:        config.SectionLint,
		Requirement: ">= 7.0",
		Items: []config.Item{
			{Name: "kept", Fields: map[string]any{"name": "kept", "command": "a"}},
			{Name: "dropped", Requirement: ">= 9.0", Fields: map[string]any{"name": "dropped", "command": "b"}},
		},
	}

	entries, err := testExpander(t, "7.2.0").ExpandSection(sec, matrix.Lint)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "kept (3.3)", entries[0]["name"])
}

func TestExpandSectionUnknownFrameworkMatchesEverything(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:        config.SectionLint,
		Requirement: ">= 9.0",
		Items: []config.Item{
			{Name: "task", Fields: map[string]any{"name": "task", "command": "a"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Lint)
	require.NoError(t, err)

	assert.Len(t, entries, 1)
}

func TestExpandSectionEmptyItemTokensFallBackToSectionDefault(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionIsolated,
		RubyTokens: []string{"default"},
		Items: []config.Item{
			// soft-fail expands to versions; an empty expansion must not kill the item.
			{Name: "suite", RubyTokens: []string{""}, Fields: map[string]any{"name": "suite", "command": "c"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Isolated)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "3.3", entries[0]["ruby"])
}

func TestExpandSectionShardCrossProduct(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionRailties,
		RubyTokens: []string{"supported"},
		Shards:     []string{"1", "2", "3"},
		Items: []config.Item{
			{Name: "railties", Fields: map[string]any{"name": "railties"}},
		},
	}

	entries, err := testExpander(t, "7.2.0").ExpandSection(sec, matrix.Railties)
	require.NoError(t, err)

	// 2 supported rubies x 3 shards.
	require.Len(t, entries, 6)

	for _, entry := range entries {
		assert.Equal(t, 3, entry["total_shards"])
	}

	first := entries[0]
	assert.Equal(t, "3.3", first["ruby"])
	assert.Equal(t, 1, first["shard"])
	assert.Equal(t, 0, first["index"])
	assert.Equal(t, "railties (3.3) 1/3", first["name"])

	// Ruby order outermost, then shard order.
	assert.Equal(t, "railties (3.3) 3/3", entries[2]["name"])
	assert.Equal(t, "railties (3.2) 1/3", entries[3]["name"])
	assert.Equal(t, 2, entries[4]["shard"])
	assert.Equal(t, 1, entries[4]["index"])
}

func TestExpandSectionItemShardsOverrideSectionShards(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionRailties,
		RubyTokens: []string{"default"},
		Shards:     []string{"1", "2", "3", "4"},
		Items: []config.Item{
			{Name: "small", Shards: []string{"a", "b"}, Fields: map[string]any{"name": "small"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Railties)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0]["total_shards"])
	assert.Equal(t, "small (3.3) a/2", entries[0]["name"])
	assert.Equal(t, "small (3.3) b/2", entries[1]["name"])
}

func TestExpandSectionAllowFailure(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionFrameworks,
		RubyTokens: []string{"all"},
		Items: []config.Item{
			{Name: "activerecord", Fields: map[string]any{"name": "activerecord", "task": "test"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Frameworks)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, true, entries[0]["allow_failure"], "3.4 is soft-fail")
	assert.Equal(t, false, entries[1]["allow_failure"])
	assert.Equal(t, false, entries[2]["allow_failure"])
}

func TestExpandSectionExplicitSoftFailOverride(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionFrameworks,
		RubyTokens: []string{"default"},
		Items: []config.Item{
			{Name: "flaky", SoftFail: true, Fields: map[string]any{"name": "flaky", "task": "test"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Frameworks)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0]["allow_failure"])
}

func TestExpandSectionStringFieldsNeverAbsent(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionFrameworks,
		RubyTokens: []string{"default"},
		Items: []config.Item{
			{Name: "bare", Fields: map[string]any{"name": "bare"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Frameworks)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "", entries[0]["task"])
}

func TestExpandSectionAttachesServiceBundle(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionFrameworks,
		RubyTokens: []string{"default"},
		Items: []config.Item{
			{
				Name:     "activerecord-mysql",
				Image:    "mariadb:10.11",
				Services: "extended",
				Fields:   map[string]any{"name": "activerecord-mysql", "task": "db:mysql:test"},
			},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Frameworks)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	blob, ok := entries[0]["services"].(string)
	require.True(t, ok, "the service bundle is embedded as one opaque serialized field")

	bundle := map[string]services.Definition{}
	require.NoError(t, json.Unmarshal([]byte(blob), &bundle))

	assert.Len(t, bundle, 5)
	assert.Equal(t, "mariadb:10.11", bundle["mysql"].Image)
	assert.Equal(t, "healthcheck.sh --connect --innodb_initialized", bundle["mysql"].HealthCheck.Command)
}

func TestExpandSectionDeclarationOrderOutermost(t *testing.T) {
	t.Parallel()

	sec := config.Section{
		Name:       config.SectionLint,
		RubyTokens: []string{"supported"},
		Items: []config.Item{
			{Name: "b-second", Fields: map[string]any{"name": "b-second", "command": "b"}},
			{Name: "a-first", Fields: map[string]any{"name": "a-first", "command": "a"}},
		},
	}

	entries, err := testExpander(t, "").ExpandSection(sec, matrix.Lint)
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.Equal(t, "b-second (3.3)", entries[0]["name"])
	assert.Equal(t, "b-second (3.2)", entries[1]["name"])
	assert.Equal(t, "a-first (3.3)", entries[2]["name"])
	assert.Equal(t, "a-first (3.2)", entries[3]["name"])
}
