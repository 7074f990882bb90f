package sql

import (
	"errors"
	"strings"
)

// errorNumberer is implemented by SQL Server errors that carry the server
// error number, e.g. mssql.Error.
type errorNumberer interface {
	SQLErrorNumber() int32
}

// SQL Server error numbers.
const (
	errUniqueConstraint = 2627 // Violation of PRIMARY KEY or UNIQUE KEY constraint
	errUniqueIndex      = 2601 // Cannot insert duplicate key row with unique index
	errConstraintCheck  = 547  // The statement conflicted with a FOREIGN KEY/CHECK/REFERENCE constraint
	errDeadlock         = 1205 // Transaction was deadlocked
	errLockTimeout      = 1222 // Lock request time out period exceeded
)

// ErrorNumber returns the SQL Server error number carried by err, if any.
func ErrorNumber(err error) (int32, bool) {
	if e, ok := asError[errorNumberer](err); ok {
		return e.SQLErrorNumber(), true
	}
	return 0, false
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a uniqueness
// violation of a primary key, unique constraint or unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if n, ok := ErrorNumber(err); ok {
		return n == errUniqueConstraint || n == errUniqueIndex
	}
	return containsAny(err.Error(),
		"Violation of PRIMARY KEY constraint",
		"Violation of UNIQUE KEY constraint",
		"Cannot insert duplicate key",
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key
// constraint violation. Error 547 covers check constraints as well, so the
// message is consulted to tell them apart.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if n, ok := ErrorNumber(err); ok && n != errConstraintCheck {
		return false
	}
	return containsAny(err.Error(),
		"FOREIGN KEY constraint",
		"REFERENCE constraint",
	)
}

// IsCheckConstraintError reports if the error resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if n, ok := ErrorNumber(err); ok && n != errConstraintCheck {
		return false
	}
	return containsAny(err.Error(), "CHECK constraint")
}

// IsDeadlockError reports if the transaction was chosen as a deadlock victim.
func IsDeadlockError(err error) bool {
	n, ok := ErrorNumber(err)
	return ok && n == errDeadlock
}

// IsLockTimeoutError reports if a lock request exceeded LOCK_TIMEOUT.
// Such errors are raised by NOWAIT lock hints too.
func IsLockTimeoutError(err error) bool {
	n, ok := ErrorNumber(err)
	return ok && n == errLockTimeout
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
