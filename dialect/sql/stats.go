package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/sqlsrv/dialect"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.SlowQueries, s.Errors)
}

// LogDriver wraps a Driver and logs every statement with its duration.
// Statements slower than the threshold are logged at Warn level; failures
// are logged with their SQL Server error number.
type LogDriver struct {
	*Driver
	logger        *slog.Logger
	slowThreshold time.Duration
	stats         QueryStats
}

// LogOption configures the LogDriver.
type LogOption func(*LogDriver)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) LogOption {
	return func(d *LogDriver) {
		d.logger = l
	}
}

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(t time.Duration) LogOption {
	return func(d *LogDriver) {
		d.slowThreshold = t
	}
}

// NewLogDriver wraps a Driver with statement logging.
//
// Example:
//
//	drv, _ := sql.Open(dsn)
//	logged := sql.NewLogDriver(drv, sql.WithLogger(logger))
//	c, err := sqlserver.NewExtractor(logged, dialect.V13).Extract(ctx)
func NewLogDriver(drv *Driver, opts ...LogOption) *LogDriver {
	d := &LogDriver{
		Driver:        drv,
		logger:        slog.Default(),
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// QueryStats returns the collected statistics.
func (d *LogDriver) QueryStats() *QueryStats {
	return &d.stats
}

// QueryContext executes a query on the underlying connection and logs it.
func (d *LogDriver) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.Driver.QueryContext(ctx, query, args...)
	d.record(ctx, query, start, err, true)
	return rows, err
}

// ExecContext executes a statement on the underlying connection and logs it.
func (d *LogDriver) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.Driver.ExecContext(ctx, query, args...)
	d.record(ctx, query, start, err, false)
	return res, err
}

// Query implements the dialect.Query method.
func (d *LogDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, start, err, true)
	return err
}

// Exec implements the dialect.Exec method.
func (d *LogDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, start, err, false)
	return err
}

func (d *LogDriver) record(ctx context.Context, query string, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	switch {
	case err != nil:
		d.stats.Errors.Add(1)
		attrs := []any{"duration", duration, "query", query, "error", err}
		if n, ok := ErrorNumber(err); ok {
			attrs = append(attrs, "number", n)
		}
		d.logger.ErrorContext(ctx, "statement failed", attrs...)
	case duration > d.slowThreshold:
		d.stats.SlowQueries.Add(1)
		d.logger.WarnContext(ctx, "slow statement", "duration", duration, "query", query)
	default:
		d.logger.DebugContext(ctx, "statement", "duration", duration, "query", query)
	}
}

var _ dialect.Driver = (*LogDriver)(nil)
