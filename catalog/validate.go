package catalog

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlsrv"
)

// ValidationError represents a structural problem in a catalog model.
type ValidationError struct {
	Object  string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Object, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Object, e.Message)
}

// ValidationResult holds the results of catalog validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns every error of the result as a sqlsrv.ValidationError,
// combined by sqlsrv.NewAggregateError. It is nil when the result holds
// no errors.
func (r *ValidationResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		names := strings.Split(e.Object, ".")
		if e.Column != "" {
			names = append(names, e.Column)
		}
		errs[i] = sqlsrv.NewValidationError("catalog", e.Message, names...)
	}
	return sqlsrv.NewAggregateError(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures catalog validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	requirePrimaryKey bool
	skipViews         bool
}

// RequirePrimaryKey reports tables without a primary key as errors
// instead of warnings.
func RequirePrimaryKey() ValidateOption {
	return func(c *validateConfig) {
		c.requirePrimaryKey = true
	}
}

// SkipViews excludes views from validation.
func SkipViews() ValidateOption {
	return func(c *validateConfig) {
		c.skipViews = true
	}
}

// Validate checks the structural invariants of a catalog: contiguous column
// positions, well-formed types, keys and indexes over owned columns, and
// foreign keys with paired column lists.
//
// Example:
//
//	if res := catalog.Validate(c); res.HasErrors() {
//	    return res.Err()
//	}
func Validate(c *Catalog, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	for _, s := range c.Schemas {
		names := make(map[string]bool)
		for _, t := range s.Tables {
			checkName(result, names, qualifiedName(&t.Relation))
			tr := ValidateTable(t)
			if !cfg.requirePrimaryKey {
				result.Errors = append(result.Errors, tr.Errors...)
				result.Warnings = append(result.Warnings, tr.Warnings...)
				continue
			}
			result.Errors = append(result.Errors, tr.Errors...)
			for _, w := range tr.Warnings {
				if w.Message == msgNoPrimaryKey {
					result.Errors = append(result.Errors, w)
				} else {
					result.Warnings = append(result.Warnings, w)
				}
			}
		}
		if cfg.skipViews {
			continue
		}
		for _, v := range s.Views {
			checkName(result, names, qualifiedName(&v.Relation))
			validateRelation(&v.Relation, result)
		}
	}
	return result
}

const msgNoPrimaryKey = "table has no primary key"

func checkName(result *ValidationResult, seen map[string]bool, name string) {
	key := strings.ToLower(name)
	if seen[key] {
		result.Errors = append(result.Errors, &ValidationError{
			Object:  name,
			Message: "duplicate object name",
		})
	}
	seen[key] = true
}

// ValidateTable validates a single table definition.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}
	validateRelation(&t.Relation, result)
	name := qualifiedName(&t.Relation)

	if t.PrimaryKey == nil {
		result.Warnings = append(result.Warnings, &ValidationError{
			Object:  name,
			Message: msgNoPrimaryKey,
		})
	} else {
		for _, c := range t.PrimaryKey.Columns {
			if c.Owner != &t.Relation {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("primary key %q references foreign column %q", t.PrimaryKey.Name, c.Name),
				})
			} else if c.Nullable {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Column:  c.Name,
					Message: "primary key column is nullable",
				})
			}
		}
	}

	for _, u := range t.UniqueConstraints {
		for _, c := range u.Columns {
			if c.Owner != &t.Relation {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("unique constraint %q references foreign column %q", u.Name, c.Name),
				})
			}
		}
	}

	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != len(fk.ReferencedColumns) {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Message: fmt.Sprintf("foreign key %q pairs %d columns with %d referenced columns", fk.Name, len(fk.Columns), len(fk.ReferencedColumns)),
			})
			continue
		}
		if fk.ReferencedTable == nil {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Message: fmt.Sprintf("foreign key %q has no referenced table", fk.Name),
			})
			continue
		}
		for i, c := range fk.Columns {
			if c.Owner != &t.Relation {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("foreign key %q references foreign column %q", fk.Name, c.Name),
				})
			}
			if ref := fk.ReferencedColumns[i]; ref.Owner != &fk.ReferencedTable.Relation {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("foreign key %q references column %q outside %s", fk.Name, ref.Name, qualifiedName(&fk.ReferencedTable.Relation)),
				})
			}
		}
	}

	if ft := t.FullTextIndex; ft != nil {
		for _, fc := range ft.Columns {
			if fc.Column.Owner != &t.Relation {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("full-text index references foreign column %q", fc.Column.Name),
				})
			}
			if len(fc.Languages) > 1 {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Column:  fc.Column.Name,
					Message: fmt.Sprintf("full-text column of index %q has %d languages", ft.UnderlyingUniqueIndex, len(fc.Languages)),
				})
			}
		}
	}
	return result
}

func validateRelation(r *Relation, result *ValidationResult) {
	name := qualifiedName(r)
	colNames := make(map[string]bool, len(r.Columns))
	for i, c := range r.Columns {
		key := strings.ToLower(c.Name)
		if colNames[key] {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Column:  c.Name,
				Message: "duplicate column name",
			})
		}
		colNames[key] = true
		if c.Position != i {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Column:  c.Name,
				Message: fmt.Sprintf("column position %d, want %d", c.Position, i),
			})
		}
		if err := c.Type.Validate(); err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Column:  c.Name,
				Message: err.Error(),
			})
		}
	}

	idxNames := make(map[string]bool, len(r.Indexes))
	for _, idx := range r.Indexes {
		key := strings.ToLower(idx.Name)
		if idxNames[key] {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Message: fmt.Sprintf("duplicate index name: %s", idx.Name),
			})
		}
		idxNames[key] = true
		if len(idx.Columns) == 0 {
			result.Errors = append(result.Errors, &ValidationError{
				Object:  name,
				Message: fmt.Sprintf("index %q has no key columns", idx.Name),
			})
		}
		for _, ic := range idx.Columns {
			if ic.Column == nil || ic.Column.Owner != r {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("index %q references a column outside the relation", idx.Name),
				})
			}
		}
		for _, c := range idx.NonKeyColumns {
			if c.Owner != r {
				result.Errors = append(result.Errors, &ValidationError{
					Object:  name,
					Message: fmt.Sprintf("index %q includes column %q outside the relation", idx.Name, c.Name),
				})
			}
		}
	}
}
