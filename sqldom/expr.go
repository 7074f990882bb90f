// Package sqldom defines the provider-neutral statement and expression tree
// consumed by the dialect compilers.
//
// The node set is closed: every node implements Node through an unexported
// marker method, and compilers switch over the concrete pointer types.
// Trees are built by an external query layer, e.g.:
//
//	q := &sqldom.Select{
//		Columns: []sqldom.SelectColumn{{Expr: sqldom.Col("u", "name")}},
//		From:    sqldom.TableAs("dbo", "users", "u"),
//		Where:   sqldom.Eq(sqldom.Col("u", "id"), sqldom.Param(42)),
//	}
package sqldom

import (
	"strconv"

	"github.com/syssam/sqlsrv/sqltype"
)

// Node is any element of a statement tree.
type Node interface {
	node()
}

// Expression is a node that yields a value.
type Expression interface {
	Node
	expr()
}

type (
	// Literal is a constant rendered inline. Value is one of: bool, the Go
	// integer and float types, string, []byte, decimal.Decimal, time.Time,
	// civil.Date, civil.Time, time.Duration or uuid.UUID.
	Literal struct {
		Value any
		// Ansi marks a string literal as single-byte (no N prefix).
		Ansi bool
	}

	// Null is the NULL literal.
	Null struct{}

	// Parameter is a bound value. Name is assigned by the compiler when empty.
	Parameter struct {
		Name  string
		Value any
		// Type is the neutral type of the value; inferred from Value when nil.
		Type *sqltype.Type
		Ansi bool
	}

	// ColumnRef references a column, optionally qualified by a table alias.
	// Name "*" selects all columns.
	ColumnRef struct {
		Qualifier string
		Name      string
	}

	// Binary is an infix operation.
	Binary struct {
		Op          BinaryOp
		Left, Right Expression
	}

	// Unary is a prefix or postfix operation.
	Unary struct {
		Op      UnaryOp
		Operand Expression
	}

	// Function is a neutral function call lowered by the dialect.
	Function struct {
		Type FunctionType
		Args []Expression
	}

	// UserFunction calls a named (user or native) function as-is.
	UserFunction struct {
		Schema string
		Name   string
		Args   []Expression
	}

	// Cast converts an expression to a neutral type.
	Cast struct {
		Operand Expression
		Type    sqltype.Type
	}

	// Case is a searched (Operand nil) or simple CASE expression.
	Case struct {
		Operand Expression
		Whens   []When
		Else    Expression
	}

	// Aggregate is an aggregate function. A nil Arg means COUNT(*).
	Aggregate struct {
		Kind     AggregateKind
		Distinct bool
		Arg      Expression
	}

	// Like is a pattern match.
	Like struct {
		Operand Expression
		Pattern Expression
		Escape  rune
		Not     bool
	}

	// Between is a range test.
	Between struct {
		Operand   Expression
		Low, High Expression
		Not       bool
	}

	// In tests membership in a value list or a subquery.
	In struct {
		Operand Expression
		Values  []Expression
		Query   Query
		Not     bool
	}

	// Exists tests whether a subquery yields rows.
	Exists struct {
		Query Query
		Not   bool
	}

	// SubQuery is a scalar subquery.
	SubQuery struct {
		Query Query
	}

	// Trim removes characters from one or both ends of a string.
	// Chars empty means a single space.
	Trim struct {
		Operand Expression
		Kind    TrimKind
		Chars   string
	}

	// Extract reads a part from a temporal or interval value. OperandKind
	// tells which: sqltype.Interval selects nanosecond arithmetic.
	Extract struct {
		Part        DateTimePart
		Operand     Expression
		OperandKind sqltype.Kind
	}

	// Round rounds Operand to Digits fractional digits (nil means 0).
	Round struct {
		Operand Expression
		Digits  Expression
		Mode    RoundMode
	}

	// Native is a raw text fragment emitted verbatim.
	Native struct {
		Text string
	}

	// RowNumber numbers the rows of a result in the given order.
	RowNumber struct {
		OrderBy []Order
	}
)

// When is one branch of a CASE expression.
type When struct {
	Cond   Expression
	Result Expression
}

func (*Literal) node()      {}
func (*Null) node()         {}
func (*Parameter) node()    {}
func (*ColumnRef) node()    {}
func (*Binary) node()       {}
func (*Unary) node()        {}
func (*Function) node()     {}
func (*UserFunction) node() {}
func (*Cast) node()         {}
func (*Case) node()         {}
func (*Aggregate) node()    {}
func (*Like) node()         {}
func (*Between) node()      {}
func (*In) node()           {}
func (*Exists) node()       {}
func (*SubQuery) node()     {}
func (*Trim) node()         {}
func (*Extract) node()      {}
func (*Round) node()        {}
func (*Native) node()       {}
func (*RowNumber) node()    {}

func (*Literal) expr()      {}
func (*Null) expr()         {}
func (*Parameter) expr()    {}
func (*ColumnRef) expr()    {}
func (*Binary) expr()       {}
func (*Unary) expr()        {}
func (*Function) expr()     {}
func (*UserFunction) expr() {}
func (*Cast) expr()         {}
func (*Case) expr()         {}
func (*Aggregate) expr()    {}
func (*Like) expr()         {}
func (*Between) expr()      {}
func (*In) expr()           {}
func (*Exists) expr()       {}
func (*SubQuery) expr()     {}
func (*Trim) expr()         {}
func (*Extract) expr()      {}
func (*Round) expr()        {}
func (*Native) expr()       {}
func (*RowNumber) expr()    {}

// BinaryOp is an infix operator.
type BinaryOp int

// Binary operators.
const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpConcat
	OpEQ
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
)

// UnaryOp is a prefix or postfix operator.
type UnaryOp int

// Unary operators.
const (
	OpNot UnaryOp = iota
	OpNegate
	OpBitNot
	OpIsNull
	OpIsNotNull
)

// AggregateKind names an aggregate function.
type AggregateKind int

// Aggregates.
const (
	Count AggregateKind = iota
	Sum
	Avg
	Min
	Max
	CountBig
)

// TrimKind selects the trimmed ends.
type TrimKind int

// Trim kinds.
const (
	TrimBoth TrimKind = iota
	TrimLeading
	TrimTrailing
)

// RoundMode selects the tie-breaking rule of Round.
type RoundMode int

// Round modes.
const (
	// BankersRound rounds half to even.
	BankersRound RoundMode = iota
	// AwayFromZero rounds half away from zero.
	AwayFromZero
)

// DateTimePart is a component of a temporal or interval value.
type DateTimePart int

// Date/time parts.
const (
	Year DateTimePart = iota
	Month
	Day
	Hour
	Minute
	Second
	Millisecond
	Nanosecond
	DayOfWeek
	DayOfYear
	Date
	TimeOfDay
)

var partNames = [...]string{
	Year:        "year",
	Month:       "month",
	Day:         "day",
	Hour:        "hour",
	Minute:      "minute",
	Second:      "second",
	Millisecond: "millisecond",
	Nanosecond:  "nanosecond",
	DayOfWeek:   "weekday",
	DayOfYear:   "dayofyear",
	Date:        "date",
	TimeOfDay:   "time",
}

// String returns the lower-case part name.
func (p DateTimePart) String() string {
	if p >= 0 && int(p) < len(partNames) {
		return partNames[p]
	}
	return "unknown"
}

// FunctionType names a neutral function.
type FunctionType int

// Neutral functions.
const (
	FnAbs FunctionType = iota
	FnCeiling
	FnFloor
	FnPower
	FnSqrt
	FnExp
	FnLog
	FnLog10
	FnSign
	FnTruncate
	FnCoalesce
	FnConcat
	FnLower
	FnUpper
	FnSubstring
	FnReplace
	FnPosition
	FnCharLength
	FnBinaryLength
	FnPadLeft
	FnPadRight
	FnCurrentDate
	FnCurrentTime
	FnCurrentDateTime
	FnNewGuid
	FnDateTimeAddYears
	FnDateTimeAddMonths
	FnDateTimeAddInterval
	FnDateTimeSubtractInterval
	FnDateTimeSubtractDateTime
	FnDateTimeConstruct
	FnDateConstruct
	FnTimeConstruct
	FnDateTimeTruncate
	FnIntervalConstruct
	FnIntervalNegate
	FnIntervalToMilliseconds
	FnIntervalToNanoseconds
	FnLastAutoGeneratedID
)

var functionNames = [...]string{
	FnAbs:                      "ABS",
	FnCeiling:                  "CEILING",
	FnFloor:                    "FLOOR",
	FnPower:                    "POWER",
	FnSqrt:                     "SQRT",
	FnExp:                      "EXP",
	FnLog:                      "LOG",
	FnLog10:                    "LOG10",
	FnSign:                     "SIGN",
	FnTruncate:                 "TRUNCATE",
	FnCoalesce:                 "COALESCE",
	FnConcat:                   "CONCAT",
	FnLower:                    "LOWER",
	FnUpper:                    "UPPER",
	FnSubstring:                "SUBSTRING",
	FnReplace:                  "REPLACE",
	FnPosition:                 "POSITION",
	FnCharLength:               "CHAR_LENGTH",
	FnBinaryLength:             "BINARY_LENGTH",
	FnPadLeft:                  "PAD_LEFT",
	FnPadRight:                 "PAD_RIGHT",
	FnCurrentDate:              "CURRENT_DATE",
	FnCurrentTime:              "CURRENT_TIME",
	FnCurrentDateTime:          "CURRENT_DATETIME",
	FnNewGuid:                  "NEW_GUID",
	FnDateTimeAddYears:         "DATETIME_ADD_YEARS",
	FnDateTimeAddMonths:        "DATETIME_ADD_MONTHS",
	FnDateTimeAddInterval:      "DATETIME_ADD_INTERVAL",
	FnDateTimeSubtractInterval: "DATETIME_SUBTRACT_INTERVAL",
	FnDateTimeSubtractDateTime: "DATETIME_SUBTRACT_DATETIME",
	FnDateTimeConstruct:        "DATETIME_CONSTRUCT",
	FnDateConstruct:            "DATE_CONSTRUCT",
	FnTimeConstruct:            "TIME_CONSTRUCT",
	FnDateTimeTruncate:         "DATETIME_TRUNCATE",
	FnIntervalConstruct:        "INTERVAL_CONSTRUCT",
	FnIntervalNegate:           "INTERVAL_NEGATE",
	FnIntervalToMilliseconds:   "INTERVAL_TO_MILLISECONDS",
	FnIntervalToNanoseconds:    "INTERVAL_TO_NANOSECONDS",
	FnLastAutoGeneratedID:      "LAST_AUTO_GENERATED_ID",
}

// String returns the neutral function name.
func (f FunctionType) String() string {
	if f >= 0 && int(f) < len(functionNames) {
		return functionNames[f]
	}
	return "FUNCTION(" + strconv.Itoa(int(f)) + ")"
}

// Col returns a column reference. With one argument it is unqualified.
func Col(qualifierOrName string, name ...string) *ColumnRef {
	if len(name) == 0 {
		return &ColumnRef{Name: qualifierOrName}
	}
	return &ColumnRef{Qualifier: qualifierOrName, Name: name[0]}
}

// Lit returns a literal.
func Lit(v any) *Literal { return &Literal{Value: v} }

// Param returns an unnamed parameter.
func Param(v any) *Parameter { return &Parameter{Value: v} }

// Eq returns l = r.
func Eq(l, r Expression) *Binary { return &Binary{Op: OpEQ, Left: l, Right: r} }

// And returns l AND r.
func And(l, r Expression) *Binary { return &Binary{Op: OpAnd, Left: l, Right: r} }

// Call returns a neutral function call.
func Call(fn FunctionType, args ...Expression) *Function {
	return &Function{Type: fn, Args: args}
}
