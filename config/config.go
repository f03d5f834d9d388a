// Package config parses the declarative CI pipeline document and the target-project
// metadata that together drive matrix generation.
package config

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/rubyci/matrixgen/internal/errors"
	"gopkg.in/yaml.v3"
)

// Section names used in the document and in error messages.
const (
	SectionLint       = "lint"
	SectionFrameworks = "frameworks"
	SectionRailties   = "railties"
	SectionIsolated   = "isolated"
)

// sectionItemKeys maps each section to the key holding its ordered item list.
var sectionItemKeys = map[string]string{
	SectionLint:       "tasks",
	SectionFrameworks: "entries",
	SectionRailties:   "suites",
	SectionIsolated:   "suites",
}

// consumedItemKeys are item keys that parameterize expansion and must not leak into the
// emitted job fields.
var consumedItemKeys = map[string]bool{
	"requirement": true,
	"ruby":        true,
	"shards":      true,
	"image":       true,
	"services":    true,
	"soft_fail":   true,
}

// Document is the parsed CI pipeline configuration. Sections are read-only views into
// the document; nothing mutates them after Load returns.
type Document struct {
	Lint       Section
	Frameworks Section
	Railties   Section
	Isolated   Section
}

// Section holds the per-section defaults pulled out of the raw document plus the ordered
// item list.
type Section struct {
	Name        string
	Requirement string
	RubyTokens  []string
	Shards      []string
	Defaults    map[string]any
	Items       []Item
}

// Item is one variant/task/suite declaration. Consumed keys (requirement, ruby, shards,
// image, services, soft_fail) are lifted into typed fields; everything else stays in
// Fields and is copied through to the emitted jobs.
type Item struct {
	Name        string
	Requirement string
	RubyTokens  []string
	Shards      []string
	Image       string
	Services    string
	SoftFail    bool
	Fields      map[string]any
}

type rawDocument struct {
	Lint       map[string]any `yaml:"lint"`
	Frameworks map[string]any `yaml:"frameworks"`
	Railties   map[string]any `yaml:"railties"`
	Isolated   map[string]any `yaml:"isolated"`
}

type sectionHeader struct {
	Requirement string         `mapstructure:"requirement"`
	Ruby        []string       `mapstructure:"ruby"`
	Shards      []string       `mapstructure:"shards"`
	Defaults    map[string]any `mapstructure:"defaults"`
}

type itemHeader struct {
	Name        string   `mapstructure:"name"`
	Requirement string   `mapstructure:"requirement"`
	Ruby        []string `mapstructure:"ruby"`
	Shards      []string `mapstructure:"shards"`
	Image       string   `mapstructure:"image"`
	Services    string   `mapstructure:"services"`
	SoftFail    bool     `mapstructure:"soft_fail"`
}

// Load reads and parses the CI pipeline document at the given path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "reading CI config %s", path)
	}

	return Parse(data, path)
}

// Parse parses the given CI pipeline document. The path is used in error messages only.
func Parse(data []byte, path string) (*Document, error) {
	raw := rawDocument{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "parsing CI config %s", path)
	}

	doc := &Document{}

	for _, section := range []struct {
		raw  map[string]any
		dest *Section
		name string
	}{
		{raw.Lint, &doc.Lint, SectionLint},
		{raw.Frameworks, &doc.Frameworks, SectionFrameworks},
		{raw.Railties, &doc.Railties, SectionRailties},
		{raw.Isolated, &doc.Isolated, SectionIsolated},
	} {
		sec, err := parseSection(section.name, section.raw)
		if err != nil {
			return nil, err
		}

		*section.dest = sec
	}

	return doc, nil
}

// Sections returns the four sections in their canonical output order.
func (doc *Document) Sections() []Section {
	return []Section{doc.Lint, doc.Frameworks, doc.Railties, doc.Isolated}
}

// ReferencedRubies returns every runtime token mentioned anywhere in the document,
// in declaration order, before any filtering or expansion.
func (doc *Document) ReferencedRubies() []string {
	var tokens []string

	for _, sec := range doc.Sections() {
		tokens = append(tokens, sec.RubyTokens...)

		for _, item := range sec.Items {
			tokens = append(tokens, item.RubyTokens...)
		}
	}

	return tokens
}

// Validate checks that every item carries its structurally required fields. A missing
// field means a broken input document, so the whole run must abort; all violations are
// collected before failing.
func (doc *Document) Validate() error {
	var errs *multierror.Error

	for _, section := range []struct {
		sec      Section
		required []string
	}{
		{doc.Lint, []string{"name", "command"}},
		{doc.Frameworks, []string{"name"}},
		{doc.Railties, []string{"name"}},
		{doc.Isolated, []string{"name", "command"}},
	} {
		for i, item := range section.sec.Items {
			for _, field := range section.required {
				if item.fieldBlank(field) {
					errs = multierror.Append(errs, MissingFieldError{
						Section: section.sec.Name,
						Index:   i,
						Field:   field,
					})
				}
			}
		}
	}

	return errors.WithStackTrace(errs.ErrorOrNil())
}

func (item Item) fieldBlank(field string) bool {
	if field == "name" {
		return strings.TrimSpace(item.Name) == ""
	}

	val, ok := item.Fields[field]
	if !ok || val == nil {
		return true
	}

	str, isString := val.(string)

	return isString && strings.TrimSpace(str) == ""
}

func parseSection(name string, raw map[string]any) (Section, error) {
	sec := Section{Name: name}
	if raw == nil {
		return sec, nil
	}

	header := sectionHeader{}
	if err := decodeWeak(raw, &header); err != nil {
		return sec, errors.WithStackTraceAndPrefix(err, "parsing section %q", name)
	}

	sec.Requirement = header.Requirement
	sec.RubyTokens = header.Ruby
	sec.Shards = header.Shards
	sec.Defaults = header.Defaults

	itemsKey := sectionItemKeys[name]

	rawItems, ok := raw[itemsKey]
	if !ok || rawItems == nil {
		return sec, nil
	}

	itemList, ok := rawItems.([]any)
	if !ok {
		return sec, errors.Errorf("section %q: %q must be a list", name, itemsKey)
	}

	for i, rawItem := range itemList {
		item, err := parseItem(name, i, rawItem, header.Defaults)
		if err != nil {
			return sec, err
		}

		sec.Items = append(sec.Items, item)
	}

	return sec, nil
}

func parseItem(section string, index int, rawItem any, defaults map[string]any) (Item, error) {
	itemMap, ok := rawItem.(map[string]any)
	if !ok {
		return Item{}, errors.Errorf("section %q item %d: expected a mapping, got %T", section, index, rawItem)
	}

	// The frameworks section carries a defaults sub-map merged underneath every entry,
	// item fields winning on conflict.
	merged := map[string]any{}

	if section == SectionFrameworks && len(defaults) > 0 {
		if err := mergo.Merge(&merged, defaults); err != nil {
			return Item{}, errors.WithStackTraceAndPrefix(err, "merging defaults for %q item %d", section, index)
		}
	}

	if err := mergo.Merge(&merged, itemMap, mergo.WithOverride); err != nil {
		return Item{}, errors.WithStackTraceAndPrefix(err, "merging fields for %q item %d", section, index)
	}

	header := itemHeader{}
	if err := decodeWeak(merged, &header); err != nil {
		return Item{}, errors.WithStackTraceAndPrefix(err, "parsing %q item %d", section, index)
	}

	fields := map[string]any{}

	for key, val := range merged {
		if !consumedItemKeys[key] {
			fields[key] = val
		}
	}

	return Item{
		Name:        header.Name,
		Requirement: header.Requirement,
		RubyTokens:  header.Ruby,
		Shards:      header.Shards,
		Image:       header.Image,
		Services:    header.Services,
		SoftFail:    header.SoftFail,
		Fields:      fields,
	}, nil
}

// decodeWeak decodes the given raw map into a typed struct, converting scalars to
// single-element lists and numbers to strings, so `ruby: "3.2"` and `shards: [1, 2]`
// both parse.
func decodeWeak(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// MissingFieldError means a section item lacks a structurally required key.
type MissingFieldError struct {
	Section string
	Index   int
	Field   string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("section %q item %d: missing required field %q", err.Section, err.Index, err.Field)
}
