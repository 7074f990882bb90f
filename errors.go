package sqlsrv

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors, one per failure class.
var (
	// ErrUnsupportedFeature is returned when a construct has no translation
	// in the target dialect.
	ErrUnsupportedFeature = errors.New("sqlsrv: unsupported feature")

	// ErrValidation is returned when caller input violates a precondition.
	ErrValidation = errors.New("sqlsrv: validation failed")

	// ErrNotFound is returned when a required catalog cross-reference is missing.
	ErrNotFound = errors.New("sqlsrv: not found")
)

// UnsupportedFeatureError is raised synchronously when the compiler meets a
// construct the dialect cannot express. No text for the construct has been
// emitted when this error is returned.
type UnsupportedFeatureError struct {
	Feature string // Feature or construct name, e.g. "INTERSECT ALL"
	Dialect string // Dialect description, e.g. "SQL Server 2005"
}

// Error returns the error string.
func (e *UnsupportedFeatureError) Error() string {
	if e.Dialect != "" {
		return fmt.Sprintf("sqlsrv: %s is not supported by %s", e.Feature, e.Dialect)
	}
	return fmt.Sprintf("sqlsrv: %s is not supported", e.Feature)
}

// Is reports whether the target error matches ErrUnsupportedFeature.
func (e *UnsupportedFeatureError) Is(err error) bool {
	return err == ErrUnsupportedFeature
}

// NewUnsupportedFeatureError returns a new UnsupportedFeatureError.
func NewUnsupportedFeatureError(feature, dialect string) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{Feature: feature, Dialect: dialect}
}

// IsUnsupportedFeature returns true if the error is an UnsupportedFeatureError.
func IsUnsupportedFeature(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedFeatureError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedFeature)
}

// ValidationError represents caller input that violates a precondition,
// e.g. a non-space trim character or two languages on one full-text column.
type ValidationError struct {
	Subject string   // What was being validated, e.g. "full-text index"
	Names   []string // Offending object names, outermost first
	Reason  string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if len(e.Names) > 0 {
		return fmt.Sprintf("sqlsrv: invalid %s %s: %s", e.Subject, strings.Join(e.Names, "."), e.Reason)
	}
	return fmt.Sprintf("sqlsrv: invalid %s: %s", e.Subject, e.Reason)
}

// Is reports whether the target error matches ErrValidation.
func (e *ValidationError) Is(err error) bool {
	return err == ErrValidation
}

// NewValidationError returns a new ValidationError.
func NewValidationError(subject, reason string, names ...string) *ValidationError {
	return &ValidationError{Subject: subject, Reason: reason, Names: names}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e) || errors.Is(err, ErrValidation)
}

// NotFoundError represents a missing catalog cross-reference
// (schema, object or type id) during extraction.
type NotFoundError struct {
	Kind string // "schema", "object", "type", "column"
	ID   any    // Identifier that was looked up
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sqlsrv: %s not found (id=%v)", e.Kind, e.ID)
}

// Is reports whether the target error matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// NewNotFoundError returns a new NotFoundError.
func NewNotFoundError(kind string, id any) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// StageError wraps a failure inside one extraction stage.
type StageError struct {
	Stage string // Stage name, e.g. "columns"
	Err   error
}

// Error returns the error string.
func (e *StageError) Error() string {
	return fmt.Sprintf("sqlsrv: extract %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sqlsrv: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("sqlsrv: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors for errors.Is/As support.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
