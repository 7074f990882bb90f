// sqlsrvinspect reads the system catalog of a SQL Server database and
// prints the reconstructed schema model, or prints the capability
// manifests of the supported server versions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlsrv/dialect/sql"
	"github.com/syssam/sqlsrv/dialect/sqlserver"
)

// opener opens a database connection from a DSN.
type opener func(dsn string) (*sql.Driver, error)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	configPath string
	dsn        string
	version    string
	manifest   string
	verbose    bool
	open       opener
}

func newRootCommand(open opener) *cobra.Command {
	opts := &rootOptions{open: open}
	cmd := &cobra.Command{
		Use:           "sqlsrvinspect",
		Short:         "Inspect SQL Server catalogs and capability manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")
	flags.StringVar(&opts.dsn, "dsn", "", "go-mssqldb connection string (overrides the config file)")
	flags.StringVar(&opts.version, "server-version", "", "server version, e.g. v11 or 2012 (skips detection)")
	flags.StringVar(&opts.manifest, "manifest", "", "manifest file replacing the built-in manifest")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log catalog queries and stage statistics")

	cmd.AddCommand(newExtractCommand(opts))
	cmd.AddCommand(newManifestCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))
	return cmd
}

func main() {
	if err := newRootCommand(sql.Open).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "sqlsrvinspect:", err)
		os.Exit(1)
	}
}

// config loads the configuration file and applies the flag overrides.
func (o *rootOptions) config() (*Config, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dsn != "" {
		cfg.DSN = o.dsn
	}
	if o.version != "" {
		cfg.Version = o.version
	}
	if o.manifest != "" {
		cfg.Manifest = o.manifest
	}
	return cfg, nil
}

// logger writes to the command's error stream so that stdout stays
// machine-readable.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// connect opens the configured database and returns a logging connection
// with a driver for its server version. The caller closes the connection.
func (o *rootOptions) connect(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...sqlserver.Option) (*sql.LogDriver, *sqlserver.Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	drv, err := o.open(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logOpts := []sql.LogOption{sql.WithLogger(logger)}
	if cfg.SlowThreshold > 0 {
		logOpts = append(logOpts, sql.WithSlowThreshold(cfg.SlowThreshold))
	}
	conn := sql.NewLogDriver(drv, logOpts...)
	opts := append([]sqlserver.Option{sqlserver.WithLogger(logger)}, extra...)
	if cfg.Manifest != "" {
		ms, err := sqlserver.LoadManifest(cfg.Manifest)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		opts = append(opts, sqlserver.WithManifests(ms))
	}
	var d *sqlserver.Driver
	v, ok, _ := cfg.version()
	if ok {
		d, err = sqlserver.NewDriver(v, opts...)
	} else {
		d, err = sqlserver.Connect(ctx, conn, opts...)
	}
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, d, nil
}
