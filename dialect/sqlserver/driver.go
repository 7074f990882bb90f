package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/dialect"
	"github.com/syssam/sqlsrv/sqldom"
)

// config holds the settings shared by Driver and Extractor.
type config struct {
	logger          *slog.Logger
	manifests       map[dialect.Version]*Manifest
	compilerOptions []CompilerOption
	onStage         func(StageStats)
}

// Option configures a Driver or an Extractor.
type Option func(*config)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithManifests replaces the embedded manifests, e.g. with the result of
// LoadManifest.
func WithManifests(ms map[dialect.Version]*Manifest) Option {
	return func(c *config) {
		c.manifests = ms
	}
}

// WithCompilerOptions passes options to the driver's compiler.
func WithCompilerOptions(opts ...CompilerOption) Option {
	return func(c *config) {
		c.compilerOptions = append(c.compilerOptions, opts...)
	}
}

// WithStageHook registers f to be called after every catalog query of an
// extraction. Extractions started by ExtractAsync or ExtractCatalogs call
// f from their own goroutines.
func WithStageHook(f func(StageStats)) Option {
	return func(c *config) {
		c.onStage = f
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Driver wires the manifest, compiler and extractor of one server version.
type Driver struct {
	manifest *Manifest
	compiler *Compiler
	logger   *slog.Logger
	onStage  func(StageStats)
}

// NewDriver returns a driver for the given version.
func NewDriver(v dialect.Version, opts ...Option) (*Driver, error) {
	cfg := newConfig(opts)
	var (
		m   *Manifest
		err error
	)
	if cfg.manifests != nil {
		var ok bool
		if m, ok = cfg.manifests[v]; !ok {
			return nil, sqlsrv.NewNotFoundError("manifest", v.String())
		}
	} else if m, err = ManifestFor(v); err != nil {
		return nil, err
	}
	return &Driver{
		manifest: m,
		compiler: NewCompiler(m, cfg.compilerOptions...),
		logger:   cfg.logger,
		onStage:  cfg.onStage,
	}, nil
}

// versionQuery reads the product version, e.g. "14.0.3381.3".
const versionQuery = `SELECT CAST(SERVERPROPERTY('ProductVersion') AS nvarchar(128))`

// DetectVersion asks the server for its version.
func DetectVersion(ctx context.Context, q Querier) (dialect.Version, error) {
	rows, err := q.QueryContext(ctx, versionQuery)
	if err != nil {
		return 0, fmt.Errorf("sqlserver: detect version: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("sqlserver: detect version: %w", err)
		}
		return 0, fmt.Errorf("sqlserver: detect version: %w", sql.ErrNoRows)
	}
	var s string
	if err := rows.Scan(&s); err != nil {
		return 0, fmt.Errorf("sqlserver: detect version: %w", err)
	}
	return dialect.ParseVersion(s)
}

// Connect detects the server version through q and returns a driver for it.
func Connect(ctx context.Context, q Querier, opts ...Option) (*Driver, error) {
	v, err := DetectVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	d, err := NewDriver(v, opts...)
	if err != nil {
		return nil, err
	}
	d.logger.DebugContext(ctx, "connected", "version", v.ProductName())
	return d, nil
}

// Version returns the server version of the driver.
func (d *Driver) Version() dialect.Version { return d.manifest.Version() }

// Manifest returns the capability manifest.
func (d *Driver) Manifest() *Manifest { return d.manifest }

// Compiler returns the statement compiler.
func (d *Driver) Compiler() *Compiler { return d.compiler }

// Extractor returns a catalog extractor reading through q.
func (d *Driver) Extractor(q Querier) *Extractor {
	return NewExtractor(q, d.manifest, WithLogger(d.logger), WithStageHook(d.onStage))
}

// Exec compiles node and executes it on ex. v receives the result as
// described by dialect.ExecQuerier.
func (d *Driver) Exec(ctx context.Context, ex dialect.ExecQuerier, node sqldom.Node, v any, opts ...CompileOption) error {
	cmd, err := d.compiler.Compile(node, opts...)
	if err != nil {
		return err
	}
	text, args := cmd.Statement()
	d.logger.DebugContext(ctx, "exec", "query", text, "params", len(args))
	return ex.Exec(ctx, text, args, v)
}

// Query compiles node and runs it on ex. v receives the rows.
func (d *Driver) Query(ctx context.Context, ex dialect.ExecQuerier, node sqldom.Node, v any, opts ...CompileOption) error {
	cmd, err := d.compiler.Compile(node, opts...)
	if err != nil {
		return err
	}
	text, args := cmd.Statement()
	d.logger.DebugContext(ctx, "query", "query", text, "params", len(args))
	return ex.Query(ctx, text, args, v)
}
