package sqlserver

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"

	"github.com/syssam/sqlsrv/sqltype"
)

// stringCapacities are the declared sizes used for string parameters.
var stringCapacities = []int{16, 32, 64, 128, 256, 512, 1024, 2048, 4000}

// StringCapacity returns the smallest declared capacity that holds n
// characters, or sqltype.Max when none does.
func StringCapacity(n int) int {
	for _, c := range stringCapacities {
		if n <= c {
			return c
		}
	}
	return sqltype.Max
}

// TypeMapper maps neutral types to native storage types, binds parameter
// values and converts values read back. All methods are pure.
type TypeMapper struct {
	manifest *Manifest
}

// NewTypeMapper returns a type mapper driven by the manifest type catalog.
func NewTypeMapper(m *Manifest) *TypeMapper {
	return &TypeMapper{manifest: m}
}

// RequiresCast reports whether a parameter of kind k must be wrapped in an
// explicit CAST to avoid driver type inference errors.
func (tm *TypeMapper) RequiresCast(k sqltype.Kind) bool {
	info, ok := tm.manifest.Type(k)
	return ok && info.Cast
}

// NativeName renders t as a native type, e.g. "nvarchar(50)" or "decimal(20,0)".
func (tm *TypeMapper) NativeName(t sqltype.Type) string {
	if t.Kind == sqltype.Other {
		return t.Native
	}
	info, ok := tm.manifest.Type(t.Kind)
	if !ok {
		return t.Native
	}
	base := info.Native
	if t.Native != "" {
		base = t.Native
	}
	switch t.Kind {
	case sqltype.Char, sqltype.VarChar, sqltype.Binary, sqltype.VarBinary:
		if base == "timestamp" || base == "rowversion" {
			return base
		}
		n := t.LengthOr(info.MaxLength)
		limit := info.MaxLength
		if base == "varchar" || base == "char" {
			limit = tm.manifest.MaxBinaryLength()
		}
		switch {
		case n == sqltype.Max || n > limit:
			if t.Kind == sqltype.Char || t.Kind == sqltype.Binary {
				return fmt.Sprintf("%s(%d)", base, limit)
			}
			return base + "(max)"
		case n <= 0:
			n = 1
		}
		return fmt.Sprintf("%s(%d)", base, n)
	case sqltype.VarCharMax, sqltype.VarBinaryMax:
		switch base {
		case "varchar", "nvarchar", "varbinary":
			return base + "(max)"
		}
		return base
	case sqltype.UInt64:
		return fmt.Sprintf("%s(%d,0)", base, info.MaxPrecision)
	case sqltype.Decimal:
		p, s := t.PrecisionOr(18, 0)
		return fmt.Sprintf("%s(%d,%d)", base, p, s)
	case sqltype.DateTime, sqltype.Time, sqltype.DateTimeOffset:
		switch base {
		case "datetime2", "time", "datetimeoffset":
			if t.Precision != nil {
				return fmt.Sprintf("%s(%d)", base, min(*t.Precision, info.MaxPrecision))
			}
		}
		return base
	}
	return base
}

// DeclaredName renders the type a parameter of type t is declared with.
// Ansi strings are declared as varchar or char.
func (tm *TypeMapper) DeclaredName(t sqltype.Type, ansi bool) string {
	if ansi && t.Native == "" {
		switch t.Kind {
		case sqltype.VarChar:
			t.Native = "varchar"
		case sqltype.Char:
			t.Native = "char"
		}
	}
	return tm.NativeName(t)
}

// InferType returns the neutral type of a Go value.
func (tm *TypeMapper) InferType(v any) sqltype.Type {
	switch v := v.(type) {
	case bool:
		return sqltype.New(sqltype.Boolean)
	case int8:
		return sqltype.New(sqltype.Int8)
	case uint8:
		return sqltype.New(sqltype.UInt8)
	case int16:
		return sqltype.New(sqltype.Int16)
	case uint16:
		return sqltype.New(sqltype.UInt16)
	case int32:
		return sqltype.New(sqltype.Int32)
	case uint32:
		return sqltype.New(sqltype.UInt32)
	case int, int64:
		return sqltype.New(sqltype.Int64)
	case uint, uint64:
		return sqltype.New(sqltype.UInt64)
	case float32:
		return sqltype.New(sqltype.Float)
	case float64:
		return sqltype.New(sqltype.Double)
	case decimal.Decimal:
		p := len(strings.TrimPrefix(v.Coefficient().String(), "-"))
		s := int(max(-v.Exponent(), 0))
		return sqltype.WithPrecision(sqltype.Decimal, max(p, s), s)
	case string:
		return sqltype.WithLength(sqltype.VarChar, StringCapacity(utf16Len(v)))
	case []byte:
		if len(v) > tm.manifest.MaxBinaryLength() {
			return sqltype.WithLength(sqltype.VarBinaryMax, sqltype.Max)
		}
		return sqltype.WithLength(sqltype.VarBinary, max(len(v), 1))
	case time.Time:
		return sqltype.New(sqltype.DateTime)
	case civil.DateTime:
		return sqltype.New(sqltype.DateTime)
	case civil.Date:
		return sqltype.New(sqltype.Date)
	case civil.Time:
		return sqltype.New(sqltype.Time)
	case time.Duration:
		return sqltype.New(sqltype.Interval)
	case uuid.UUID:
		return sqltype.New(sqltype.Guid)
	}
	return sqltype.Type{Kind: sqltype.Unknown}
}

// ParameterType returns the declared type of a parameter: strings are
// sized to the smallest capacity that fits the value.
func (tm *TypeMapper) ParameterType(v any, t *sqltype.Type) sqltype.Type {
	if t == nil {
		return tm.InferType(v)
	}
	if s, ok := v.(string); ok && (t.Kind == sqltype.VarChar || t.Kind == sqltype.Char) {
		return sqltype.WithLength(t.Kind, StringCapacity(utf16Len(s)))
	}
	return *t
}

// Bind converts a parameter value to the driver argument for kind k.
// Ansi marks single-byte strings.
func (tm *TypeMapper) Bind(v any, k sqltype.Kind, ansi bool) (any, error) {
	legacy := !tm.manifest.Supports(FeatureDateType)
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		switch {
		case ansi && len(v) > tm.manifest.MaxBinaryLength():
			return mssql.VarCharMax(v), nil
		case ansi:
			return mssql.VarChar(v), nil
		case utf16Len(v) > tm.manifest.MaxStringLength():
			return mssql.NVarCharMax(v), nil
		}
		return v, nil
	case int8:
		return int16(v), nil
	case uint16:
		return int32(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return bindUnsigned(uint64(v), k)
	case uint64:
		return bindUnsigned(v, k)
	case decimal.Decimal:
		return v.String(), nil
	case time.Duration:
		return int64(v), nil
	case uuid.UUID:
		return mssql.UniqueIdentifier(v), nil
	case time.Time:
		switch {
		case k == sqltype.DateTimeOffset:
			return v, nil
		case legacy:
			return mssql.DateTime1(v), nil
		case k == sqltype.Date:
			return civil.DateOf(v), nil
		case k == sqltype.Time:
			return civil.TimeOf(v), nil
		}
		return civil.DateTimeOf(v), nil
	case civil.Date:
		if legacy {
			return mssql.DateTime1(v.In(time.UTC)), nil
		}
		return v, nil
	case civil.Time:
		if legacy {
			return mssql.DateTime1(time.Date(1900, 1, 1, v.Hour, v.Minute, v.Second, v.Nanosecond, time.UTC)), nil
		}
		return v, nil
	case civil.DateTime:
		if legacy {
			return mssql.DateTime1(v.In(time.UTC)), nil
		}
		return v, nil
	}
	return v, nil
}

func bindUnsigned(v uint64, k sqltype.Kind) (any, error) {
	if k == sqltype.UInt64 || v > math.MaxInt64 {
		return strconv.FormatUint(v, 10), nil
	}
	return int64(v), nil
}

// Read converts a value scanned from the driver into the Go representation
// of kind k.
func (tm *TypeMapper) Read(k sqltype.Kind, src any) (any, error) {
	if src == nil {
		return nil, nil
	}
	switch k {
	case sqltype.Boolean:
		switch v := src.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
	case sqltype.Int8, sqltype.UInt16, sqltype.UInt32:
		n, ok := src.(int64)
		if !ok {
			break
		}
		switch k {
		case sqltype.Int8:
			return int8(n), nil
		case sqltype.UInt16:
			return uint16(n), nil
		}
		return uint32(n), nil
	case sqltype.UInt64:
		d, err := toDecimal(src)
		if err != nil {
			return nil, err
		}
		return strconv.ParseUint(d.Truncate(0).String(), 10, 64)
	case sqltype.Decimal, sqltype.Money:
		d, err := toDecimal(src)
		if err != nil {
			return nil, err
		}
		return ClampDecimal(d), nil
	case sqltype.Interval:
		if n, ok := src.(int64); ok {
			return time.Duration(n), nil
		}
	case sqltype.Guid:
		var id mssql.UniqueIdentifier
		if err := id.Scan(src); err != nil {
			return nil, fmt.Errorf("sqlserver: read guid: %w", err)
		}
		return uuid.UUID(id), nil
	case sqltype.Date:
		if t, ok := src.(time.Time); ok {
			return civil.DateOf(t), nil
		}
	case sqltype.Time:
		if t, ok := src.(time.Time); ok {
			return civil.TimeOf(t), nil
		}
	default:
		return src, nil
	}
	return nil, fmt.Errorf("sqlserver: cannot read %T as %s", src, k)
}

// ClampDecimal limits d to the neutral decimal range.
func ClampDecimal(d decimal.Decimal) decimal.Decimal {
	switch {
	case d.GreaterThan(sqltype.MaxDecimal):
		return sqltype.MaxDecimal
	case d.LessThan(sqltype.MinDecimal):
		return sqltype.MinDecimal
	}
	return d
}

func toDecimal(src any) (decimal.Decimal, error) {
	switch v := src.(type) {
	case decimal.Decimal:
		return v, nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return decimal.Decimal{}, fmt.Errorf("sqlserver: cannot read %T as decimal", src)
}

// ResolveNative maps a catalog type description to a neutral type.
// maxLength is sys.columns.max_length in bytes (-1 for max). Unknown names
// report false.
func (tm *TypeMapper) ResolveNative(name string, maxLength, precision, scale int) (sqltype.Type, bool) {
	name = strings.ToLower(name)
	withNative := func(t sqltype.Type) sqltype.Type {
		t.Native = name
		return t
	}
	chars := func(k, maxKind sqltype.Kind, n int) sqltype.Type {
		if n == sqltype.Max {
			return sqltype.WithLength(maxKind, sqltype.Max)
		}
		return sqltype.WithLength(k, n)
	}
	switch name {
	case "bit":
		return sqltype.New(sqltype.Boolean), true
	case "tinyint":
		return sqltype.New(sqltype.UInt8), true
	case "smallint":
		return sqltype.New(sqltype.Int16), true
	case "int":
		return sqltype.New(sqltype.Int32), true
	case "bigint":
		return sqltype.New(sqltype.Int64), true
	case "decimal":
		return sqltype.WithPrecision(sqltype.Decimal, precision, scale), true
	case "numeric":
		return withNative(sqltype.WithPrecision(sqltype.Decimal, precision, scale)), true
	case "money":
		return sqltype.New(sqltype.Money), true
	case "smallmoney":
		return withNative(sqltype.New(sqltype.Money)), true
	case "real":
		return sqltype.New(sqltype.Float), true
	case "float":
		if precision > 0 && precision <= 24 {
			return sqltype.New(sqltype.Float), true
		}
		return sqltype.New(sqltype.Double), true
	case "datetime", "smalldatetime":
		return withNative(sqltype.New(sqltype.DateTime)), true
	case "datetime2":
		return withNative(sqltype.WithPrecision(sqltype.DateTime, scale, 0)), true
	case "date":
		return sqltype.New(sqltype.Date), true
	case "time":
		return sqltype.WithPrecision(sqltype.Time, scale, 0), true
	case "datetimeoffset":
		return sqltype.WithPrecision(sqltype.DateTimeOffset, scale, 0), true
	case "char":
		return withNative(sqltype.WithLength(sqltype.Char, maxLength)), true
	case "varchar":
		return withNative(chars(sqltype.VarChar, sqltype.VarCharMax, maxLength)), true
	case "nchar":
		return sqltype.WithLength(sqltype.Char, maxLength/2), true
	case "nvarchar":
		if maxLength == sqltype.Max {
			return sqltype.WithLength(sqltype.VarCharMax, sqltype.Max), true
		}
		return sqltype.WithLength(sqltype.VarChar, maxLength/2), true
	case "sysname":
		return sqltype.WithLength(sqltype.VarChar, 128), true
	case "text", "ntext":
		return withNative(sqltype.WithLength(sqltype.VarCharMax, sqltype.Max)), true
	case "binary":
		return sqltype.WithLength(sqltype.Binary, maxLength), true
	case "varbinary":
		return chars(sqltype.VarBinary, sqltype.VarBinaryMax, maxLength), true
	case "image":
		return withNative(sqltype.WithLength(sqltype.VarBinaryMax, sqltype.Max)), true
	case "timestamp", "rowversion":
		return withNative(sqltype.WithLength(sqltype.Binary, 8)), true
	case "uniqueidentifier":
		return sqltype.New(sqltype.Guid), true
	case "xml", "geography", "geometry", "hierarchyid", "sql_variant":
		return sqltype.OtherType(name), true
	}
	return sqltype.Type{}, false
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
