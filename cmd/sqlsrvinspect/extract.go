package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlsrv/catalog"
	"github.com/syssam/sqlsrv/dialect/sqlserver"
)

type extractOptions struct {
	format            string
	catalogs          []string
	schemas           []string
	requirePrimaryKey bool
}

func newExtractCommand(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the catalog of one or more databases",
		Long: `Extract reads the system catalog views of the configured databases and
prints the reconstructed schema model. Catalog queries are read-only.
The model is validated before it is printed: warnings are logged and
errors fail the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatYAML, "output format (yaml|json|text)")
	cmd.Flags().StringSliceVar(&opts.catalogs, "catalog", nil, "database to extract; repeat for several")
	cmd.Flags().StringSliceVarP(&opts.schemas, "schema", "s", nil, "schema to extract; repeat for several")
	cmd.Flags().BoolVar(&opts.requirePrimaryKey, "require-primary-key", false, "fail on tables without a primary key")
	return cmd
}

func runExtract(cmd *cobra.Command, root *rootOptions, opts *extractOptions) error {
	if !slices.Contains(formats, opts.format) {
		return fmt.Errorf("invalid format %q: must be one of %v", opts.format, formats)
	}
	cfg, err := root.config()
	if err != nil {
		return err
	}
	if len(opts.catalogs) > 0 {
		cfg.Catalogs = opts.catalogs
	}
	if len(opts.schemas) > 0 {
		cfg.Schemas = opts.schemas
	}
	ctx := cmd.Context()
	logger := root.logger(cmd)
	var extra []sqlserver.Option
	if p := newStageProgress(cmd.ErrOrStderr(), root.verbose); p != nil {
		extra = append(extra, p.hook())
		defer p.finish()
	}
	conn, d, err := root.connect(ctx, cfg, logger, extra...)
	if err != nil {
		return err
	}
	defer conn.Close()

	var results []*sqlserver.Extraction
	switch len(cfg.Catalogs) {
	case 0, 1:
		var name string
		if len(cfg.Catalogs) == 1 {
			name = cfg.Catalogs[0]
		}
		ex, err := d.Extractor(conn).Extract(ctx, sqlserver.ExtractOptions{Catalog: name, Schemas: cfg.Schemas})
		if err != nil {
			return err
		}
		results = append(results, ex)
	default:
		sources := make(map[string]*sqlserver.Extractor, len(cfg.Catalogs))
		for _, name := range cfg.Catalogs {
			sources[name] = d.Extractor(conn)
		}
		byName, err := sqlserver.ExtractCatalogs(ctx, sources, cfg.Schemas...)
		if err != nil {
			return err
		}
		for _, name := range cfg.Catalogs {
			results = append(results, byName[name])
		}
	}
	for _, ex := range results {
		for _, st := range ex.Stats {
			logger.DebugContext(ctx, "stage", "catalog", ex.Catalog.Name, "stats", st.String())
		}
	}
	logger.DebugContext(ctx, "queries", slog.String("stats", conn.QueryStats().Stats().String()))

	var vopts []catalog.ValidateOption
	if opts.requirePrimaryKey {
		vopts = append(vopts, catalog.RequirePrimaryKey())
	}
	for _, ex := range results {
		res := catalog.Validate(ex.Catalog, vopts...)
		for _, w := range res.Warnings {
			logger.WarnContext(ctx, "catalog issue", "catalog", ex.Catalog.Name, "issue", w.Error())
		}
		if err := res.Err(); err != nil {
			return fmt.Errorf("catalog %s: %w", ex.Catalog.Name, err)
		}
	}

	w := cmd.OutOrStdout()
	if opts.format == formatText {
		native := sqlserver.NewTypeMapper(d.Manifest()).NativeName
		for _, ex := range results {
			if err := writeRealm(w, ex.Catalog.Name, catalog.ToAtlas(ex.Catalog, native)); err != nil {
				return err
			}
		}
		return nil
	}
	descs := make([]*catalog.Description, len(results))
	for i, ex := range results {
		descs[i] = catalog.Describe(ex.Catalog)
	}
	if len(descs) == 1 {
		return writeDocument(w, opts.format, descs[0])
	}
	return writeDocument(w, opts.format, descs)
}
