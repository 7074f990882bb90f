package dialect

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SQLServer is the dialect name, equal to the go-mssqldb driver name.
const SQLServer = "sqlserver"

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for a connection.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Version is a SQL Server major version.
type Version int

// Supported versions.
const (
	V09 Version = 9  // SQL Server 2005
	V10 Version = 10 // SQL Server 2008
	V11 Version = 11 // SQL Server 2012
	V13 Version = 13 // SQL Server 2016
	V14 Version = 14 // SQL Server 2017
)

// Versions lists the supported versions in ascending order.
var Versions = []Version{V09, V10, V11, V13, V14}

var productNames = map[Version]string{
	V09: "SQL Server 2005",
	V10: "SQL Server 2008",
	V11: "SQL Server 2012",
	V13: "SQL Server 2016",
	V14: "SQL Server 2017",
}

// String returns the short version id, e.g. "v11".
func (v Version) String() string {
	return fmt.Sprintf("v%02d", int(v))
}

// ProductName returns the marketing name, e.g. "SQL Server 2012".
func (v Version) ProductName() string {
	if n, ok := productNames[v]; ok {
		return n
	}
	return "SQL Server " + v.String()
}

// AtLeast reports whether v is o or newer.
func (v Version) AtLeast(o Version) bool { return v >= o }

// ParseVersion parses "v11", "11", "2012" or a product version such as
// "11.0.2100.60". Versions between supported ones resolve to the nearest
// older supported version, and versions newer than the last supported one
// resolve to it.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(s), "v"))
	if major, _, ok := strings.Cut(s, "."); ok {
		s = major
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("dialect: invalid version %q", s)
	}
	for v, name := range productNames {
		if strings.HasSuffix(name, " "+strconv.Itoa(n)) {
			return v, nil
		}
	}
	if n < int(V09) {
		return 0, fmt.Errorf("dialect: version %d is not supported", n)
	}
	v := Versions[0]
	for _, sv := range Versions {
		if int(sv) <= n {
			v = sv
		}
	}
	return v, nil
}
