// Package dialect provides the dialect identifiers and driver interfaces
// shared by the SQL Server packages.
//
// # Dialect Constants
//
// The dialect is identified by a constant string matching the
// database/sql driver name registered by go-mssqldb:
//
//	dialect.SQLServer = "sqlserver"
//
// # Versions
//
// Supported server versions are identified by their major version number:
//
//	dialect.V09 // SQL Server 2005
//	dialect.V10 // SQL Server 2008
//	dialect.V11 // SQL Server 2012
//	dialect.V13 // SQL Server 2016
//	dialect.V14 // SQL Server 2017
//
// ParseVersion accepts the product version reported by
// SERVERPROPERTY('ProductVersion'), e.g. "13.0.5026.0".
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql wrapper and SQL Server error classification
//   - dialect/sqlserver: capability manifest, type mapper, compiler and
//     catalog extractor
package dialect
