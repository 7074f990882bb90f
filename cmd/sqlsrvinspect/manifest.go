package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlsrv/dialect"
	"github.com/syssam/sqlsrv/dialect/sqlserver"
)

func newManifestCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest [version]",
		Short: "Print the resolved capability manifests",
		Long: `Manifest prints the capability manifest of every supported server version,
or of the given one, with inherited entries merged. The output has the
layout of a manifest file and can be edited and passed back with --manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := manifests(root.manifest)
			if err != nil {
				return err
			}
			out := make(map[string]*sqlserver.Manifest)
			if len(args) == 1 {
				v, err := dialect.ParseVersion(args[0])
				if err != nil {
					return err
				}
				m, ok := ms[v]
				if !ok {
					return fmt.Errorf("no manifest for version %s", v)
				}
				out[v.String()] = m
			} else {
				for v, m := range ms {
					out[v.String()] = m
				}
			}
			return writeDocument(cmd.OutOrStdout(), formatYAML, map[string]any{"versions": out})
		},
	}
}

// manifests loads the manifest file at path, or returns the built-in
// manifests when path is empty.
func manifests(path string) (map[dialect.Version]*sqlserver.Manifest, error) {
	if path != "" {
		return sqlserver.LoadManifest(path)
	}
	ms := make(map[dialect.Version]*sqlserver.Manifest, len(dialect.Versions))
	for _, v := range dialect.Versions {
		m, err := sqlserver.ManifestFor(v)
		if err != nil {
			return nil, err
		}
		ms[v] = m
	}
	return ms, nil
}

func newVersionCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Detect the server version and print its feature set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			conn, d, err := root.connect(cmd.Context(), cfg, root.logger(cmd))
			if err != nil {
				return err
			}
			defer conn.Close()
			v := d.Version()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)\n", v, v.ProductName())
			for _, f := range d.Manifest().Features() {
				fmt.Fprintf(w, "  %s\n", f)
			}
			return nil
		},
	}
}
