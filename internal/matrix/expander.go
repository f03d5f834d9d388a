// Package matrix flattens the parsed config sections into ready-to-execute job
// descriptors and assembles the final output object.
package matrix

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/rubyci/matrixgen/config"
	"github.com/rubyci/matrixgen/internal/rubyver"
	"github.com/rubyci/matrixgen/internal/services"
	"github.com/rubyci/matrixgen/pkg/log"
)

// Entry is one fully resolved (item x ruby x shard) job descriptor. Entries are built
// during expansion, serialized into the final output, and never mutated.
type Entry map[string]any

// SectionKind selects the per-section expansion strategy.
type SectionKind int

const (
	Lint SectionKind = iota
	Frameworks
	Railties
	Isolated
)

// strategy captures how one section diverges from the shared expansion skeleton.
type strategy struct {
	// stringFields are emitted fields that must never be absent from a job; missing ones
	// default to the empty string.
	stringFields []string

	// sharded sections cross-product each resolved ruby against the item's shard list.
	sharded bool
}

var strategies = map[SectionKind]strategy{
	Lint:       {stringFields: []string{"name", "command"}},
	Frameworks: {stringFields: []string{"name", "task"}},
	Railties:   {stringFields: []string{"name"}, sharded: true},
	Isolated:   {stringFields: []string{"name", "command"}},
}

// Expander expands config sections against an immutable catalog and framework version.
type Expander struct {
	Catalog   *rubyver.Catalog
	Framework *version.Version
	Logger    log.Logger
}

// ExpandSection emits the flattened job list for one section: item-declaration order
// outermost, then ruby order, then shard order.
func (expander *Expander) ExpandSection(sec config.Section, kind SectionKind) ([]Entry, error) {
	strat := strategies[kind]

	entries := []Entry{}

	for _, item := range sec.Items {
		requirement := item.Requirement
		if requirement == "" {
			requirement = sec.Requirement
		}

		if !rubyver.RequirementSatisfied(expander.Logger, requirement, expander.Framework) {
			expander.Logger.Debugf("Skipping %q item %q: requirement %q not met by framework %s",
				sec.Name, item.Name, requirement, expander.Framework)
			continue
		}

		tokens := item.RubyTokens
		if len(tokens) == 0 {
			tokens = sec.RubyTokens
		}

		rubies := expander.Catalog.Expand(tokens)
		if len(rubies) == 0 {
			// An item whose declared tokens resolve to nothing falls back to the
			// section defaults instead of silently vanishing.
			rubies = expander.Catalog.Expand(sec.RubyTokens)
		}

		for _, ruby := range rubies {
			if !strat.sharded {
				entry, err := expander.buildEntry(strat, item, ruby, "", 0, 0)
				if err != nil {
					return nil, err
				}

				entries = append(entries, entry)

				continue
			}

			shards := item.Shards
			if len(shards) == 0 {
				shards = sec.Shards
			}

			if len(shards) == 0 {
				entry, err := expander.buildEntry(strat, item, ruby, "", 0, 0)
				if err != nil {
					return nil, err
				}

				entries = append(entries, entry)

				continue
			}

			for i, shard := range shards {
				entry, err := expander.buildEntry(strat, item, ruby, shard, i, len(shards))
				if err != nil {
					return nil, err
				}

				entries = append(entries, entry)
			}
		}
	}

	return entries, nil
}

func (expander *Expander) buildEntry(strat strategy, item config.Item, ruby string, shard string, shardPos int, totalShards int) (Entry, error) {
	entry := Entry{}

	for key, val := range item.Fields {
		entry[key] = val
	}

	for _, field := range strat.stringFields {
		if _, ok := entry[field]; !ok {
			entry[field] = ""
		}
	}

	entry["ruby"] = ruby
	entry["allow_failure"] = item.SoftFail || expander.Catalog.SoftFailMap[ruby]

	bundle, err := services.New(services.ParseSet(item.Services), item.Image).JSON()
	if err != nil {
		return nil, err
	}

	entry["services"] = bundle

	label := fmt.Sprintf("%s (%s)", item.Name, ruby)

	if totalShards > 0 {
		label = fmt.Sprintf("%s (%s) %s/%d", item.Name, ruby, shard, totalShards)

		entry["shard"] = shardPos + 1
		entry["total_shards"] = totalShards
		// Zero-based position for the CI runner's parallelism mechanism.
		entry["index"] = shardPos
	}

	entry["name"] = label

	return entry, nil
}
