package cli

import (
	"github.com/rubyci/matrixgen/config"
	"github.com/rubyci/matrixgen/internal/matrix"
	"github.com/rubyci/matrixgen/internal/rubyver"
	"github.com/rubyci/matrixgen/internal/view"
	"github.com/rubyci/matrixgen/options"
	"github.com/rubyci/matrixgen/pkg/env"
)

// Run executes one generation pass: parse inputs, build the catalog, expand every
// section, assemble, and write the output.
func Run(opts *options.RunOptions) error {
	logger := opts.Logger

	doc, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err := doc.Validate(); err != nil {
		return err
	}

	meta, err := config.LoadProjectMetadata(opts.ProjectRoot, logger)
	if err != nil {
		return err
	}

	catalog, err := buildCatalog(opts, doc, meta)
	if err != nil {
		return err
	}

	logger.Debugf("Resolved ruby catalog: all=%v soft_fail=%v default=%s",
		catalog.All, catalog.SoftFail, catalog.Default)

	expander := &matrix.Expander{
		Catalog:   catalog,
		Framework: meta.FrameworkVersion,
		Logger:    logger,
	}

	lint, err := expander.ExpandSection(doc.Lint, matrix.Lint)
	if err != nil {
		return err
	}

	frameworks, err := expander.ExpandSection(doc.Frameworks, matrix.Frameworks)
	if err != nil {
		return err
	}

	railties, err := expander.ExpandSection(doc.Railties, matrix.Railties)
	if err != nil {
		return err
	}

	isolated, err := expander.ExpandSection(doc.Isolated, matrix.Isolated)
	if err != nil {
		return err
	}

	out := matrix.Assemble(lint, frameworks, railties, isolated, catalog)

	writer := &view.Writer{
		Stdout:    opts.Writer,
		LookupEnv: opts.LookupEnv,
		Logger:    logger,
	}

	return writer.Write(out)
}

// buildCatalog unions every candidate source: the built-in list, the declared minimum
// itself, environment extras, and every version token referenced in the document.
func buildCatalog(opts *options.RunOptions, doc *config.Document, meta *config.ProjectMetadata) (*rubyver.Catalog, error) {
	candidates := append([]string{}, rubyver.DefaultCandidates...)

	if meta.MinimumRuby != nil {
		candidates = append(candidates, meta.MinimumRuby.Original())
	}

	if extras, ok := opts.LookupEnv(options.EnvVarExtraRubies); ok {
		candidates = append(candidates, env.SplitList(extras)...)
	}

	candidates = append(candidates, doc.ReferencedRubies()...)

	builder := &rubyver.CatalogBuilder{
		Minimum:    meta.MinimumRuby,
		MaxSafe:    rubyver.MaxSafeRuby(meta.FrameworkVersion),
		Candidates: candidates,
		Logger:     opts.Logger,
	}

	return builder.Build()
}
