// Package sqltype defines the provider-neutral value type system shared by
// the compiler, the type mapper and the catalog model.
package sqltype

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind is a neutral primitive kind.
type Kind int

// Neutral kinds.
const (
	Unknown Kind = iota
	Boolean
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Decimal
	Float
	Double
	Money
	DateTime
	Date
	Time
	DateTimeOffset
	Interval
	Char
	VarChar
	VarCharMax
	Binary
	VarBinary
	VarBinaryMax
	Guid
	Other
)

var kindNames = [...]string{
	Unknown:        "Unknown",
	Boolean:        "Boolean",
	Int8:           "Int8",
	UInt8:          "UInt8",
	Int16:          "Int16",
	UInt16:         "UInt16",
	Int32:          "Int32",
	UInt32:         "UInt32",
	Int64:          "Int64",
	UInt64:         "UInt64",
	Decimal:        "Decimal",
	Float:          "Float",
	Double:         "Double",
	Money:          "Money",
	DateTime:       "DateTime",
	Date:           "Date",
	Time:           "Time",
	DateTimeOffset: "DateTimeOffset",
	Interval:       "Interval",
	Char:           "Char",
	VarChar:        "VarChar",
	VarCharMax:     "VarCharMax",
	Binary:         "Binary",
	VarBinary:      "VarBinary",
	VarBinaryMax:   "VarBinaryMax",
	Guid:           "Guid",
	Other:          "Other",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return Unknown, false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("sqltype: unknown kind %q", text)
	}
	*k = v
	return nil
}

// IsStreamLike reports whether the kind carries a length.
func (k Kind) IsStreamLike() bool {
	switch k {
	case Char, VarChar, VarCharMax, Binary, VarBinary, VarBinaryMax:
		return true
	}
	return false
}

// IsFractional reports whether the kind carries precision and scale.
func (k Kind) IsFractional() bool {
	switch k {
	case Decimal, Float, Double, Money, DateTime, Time, DateTimeOffset:
		return true
	}
	return false
}

// IsInteger reports whether the kind is an integer kind.
func (k Kind) IsInteger() bool {
	switch k {
	case Int8, UInt8, Int16, UInt16, Int32, UInt32, Int64, UInt64:
		return true
	}
	return false
}

// IsTemporal reports whether the kind is a date/time kind.
func (k Kind) IsTemporal() bool {
	switch k {
	case DateTime, Date, Time, DateTimeOffset:
		return true
	}
	return false
}

// Max is the unbounded length sentinel.
const Max = -1

// MaxDecimalDigits is the number of digits the neutral decimal can hold.
const MaxDecimalDigits = 28

// MaxDecimal and MinDecimal bound the neutral decimal representation.
var (
	MaxDecimal = decimal.RequireFromString("9999999999999999999999999999")
	MinDecimal = MaxDecimal.Neg()
)

// Type is a neutral value type: a kind with an optional length or an
// optional (precision, scale) pair, never both.
type Type struct {
	Kind      Kind
	Length    *int
	Precision *int
	Scale     *int
	// Native holds the provider type name for kinds the neutral system does
	// not model (Other), e.g. "geography".
	Native string
}

// New returns a type without length or precision.
func New(k Kind) Type {
	return Type{Kind: k}
}

// WithLength returns a stream-like type of the given length.
// Use Max for an unbounded length.
func WithLength(k Kind, length int) Type {
	return Type{Kind: k, Length: &length}
}

// WithPrecision returns a fractional type with the given precision and scale.
func WithPrecision(k Kind, precision, scale int) Type {
	return Type{Kind: k, Precision: &precision, Scale: &scale}
}

// OtherType returns a type for a provider type the neutral system does not model.
func OtherType(native string) Type {
	return Type{Kind: Other, Native: native}
}

// Validate checks the length/precision invariants.
func (t Type) Validate() error {
	if t.Length != nil && (t.Precision != nil || t.Scale != nil) {
		return fmt.Errorf("sqltype: %s has both length and precision", t.Kind)
	}
	if t.Length != nil && !t.Kind.IsStreamLike() {
		return fmt.Errorf("sqltype: length is not meaningful for %s", t.Kind)
	}
	if (t.Precision != nil || t.Scale != nil) && !t.Kind.IsFractional() {
		return fmt.Errorf("sqltype: precision is not meaningful for %s", t.Kind)
	}
	if t.Length != nil && *t.Length < Max {
		return fmt.Errorf("sqltype: negative length %d", *t.Length)
	}
	if t.Precision != nil && t.Scale != nil && *t.Scale > *t.Precision {
		return fmt.Errorf("sqltype: scale %d exceeds precision %d", *t.Scale, *t.Precision)
	}
	return nil
}

// LengthOr returns the length or def when unset.
func (t Type) LengthOr(def int) int {
	if t.Length == nil {
		return def
	}
	return *t.Length
}

// PrecisionOr returns the precision and scale, or the defaults when unset.
func (t Type) PrecisionOr(precision, scale int) (int, int) {
	p, s := precision, scale
	if t.Precision != nil {
		p = *t.Precision
	}
	if t.Scale != nil {
		s = *t.Scale
	}
	return p, s
}

// Equal reports whether two types are structurally equal.
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.Native == o.Native &&
		eqInt(t.Length, o.Length) && eqInt(t.Precision, o.Precision) && eqInt(t.Scale, o.Scale)
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// String returns a compact description such as "VarChar(50)" or "Decimal(18,2)".
func (t Type) String() string {
	name := t.Kind.String()
	if t.Kind == Other && t.Native != "" {
		name = t.Native
	}
	switch {
	case t.Length != nil && *t.Length == Max:
		return name + "(max)"
	case t.Length != nil:
		return fmt.Sprintf("%s(%d)", name, *t.Length)
	case t.Precision != nil && t.Scale != nil:
		return fmt.Sprintf("%s(%d,%d)", name, *t.Precision, *t.Scale)
	case t.Precision != nil:
		return fmt.Sprintf("%s(%d)", name, *t.Precision)
	}
	return name
}
