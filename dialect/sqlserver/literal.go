package sqlserver

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/sqltype"
)

// literalFormat renders a temporal kind: the value is formatted with Layout
// and wrapped in CAST(... AS Cast).
type literalFormat struct {
	Layout string
	Cast   string
}

// timeEpoch is the date part of time-of-day values stored as datetime.
var timeEpoch = civil.Date{Year: 1900, Month: time.January, Day: 1}

// Literal renders v as an inline constant. Ansi marks single-byte strings.
func (t *Translator) Literal(v any, ansi bool) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "CAST(1 AS bit)", nil
		}
		return "CAST(0 AS bit)", nil
	case int:
		return strconv.Itoa(v), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return t.unsignedLiteral(uint64(v)), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return t.unsignedLiteral(v), nil
	case float32:
		return floatLiteral(float64(v), 32)
	case float64:
		return floatLiteral(v, 64)
	case decimal.Decimal:
		return ClampDecimal(v).String(), nil
	case string:
		return StringLiteral(v, ansi), nil
	case []byte:
		return "0x" + strings.ToUpper(hex.EncodeToString(v)), nil
	case uuid.UUID:
		return fmt.Sprintf("CAST('%s' AS uniqueidentifier)", v), nil
	case time.Duration:
		return fmt.Sprintf("CAST(%d AS bigint)", int64(v)), nil
	case time.Time:
		if _, offset := v.Zone(); offset != 0 && t.format(sqltype.DateTimeOffset) != nil {
			return t.temporalLiteral(sqltype.DateTimeOffset, v)
		}
		return t.temporalLiteral(sqltype.DateTime, v)
	case civil.DateTime:
		return t.temporalLiteral(sqltype.DateTime, v.In(time.UTC))
	case civil.Date:
		return t.temporalLiteral(sqltype.Date, v.In(time.UTC))
	case civil.Time:
		return t.temporalLiteral(sqltype.Time, civil.DateTime{Date: timeEpoch, Time: v}.In(time.UTC))
	}
	return "", sqlsrv.NewUnsupportedFeatureError(fmt.Sprintf("literal of type %T", v), t.manifest.Name())
}

// StringLiteral quotes s, doubling single quotes. Unicode strings carry
// the N prefix.
func StringLiteral(s string, ansi bool) string {
	q := "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if ansi {
		return q
	}
	return "N" + q
}

func (t *Translator) unsignedLiteral(v uint64) string {
	if v > math.MaxInt64 {
		return fmt.Sprintf("CAST(%d AS %s)", v, t.types.NativeName(sqltype.New(sqltype.UInt64)))
	}
	return strconv.FormatUint(v, 10)
}

func floatLiteral(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", sqlsrv.NewValidationError("literal", "non-finite float "+strconv.FormatFloat(f, 'g', -1, bits))
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		// integral text would be typed as int
		s += "e0"
	}
	return s, nil
}

// temporalLiteral clamps v into the representable range of kind and
// renders it with the version's format.
func (t *Translator) temporalLiteral(kind sqltype.Kind, v time.Time) (string, error) {
	f := t.format(kind)
	if f == nil {
		return "", sqlsrv.NewUnsupportedFeatureError(kind.String()+" literal", t.manifest.Name())
	}
	v = t.ClampTime(kind, v)
	return fmt.Sprintf("CAST('%s' AS %s)", v.Format(f.Layout), f.Cast), nil
}

// ClampTime limits v to the manifest range of kind. Values out of range are
// replaced by the nearest bound.
func (t *Translator) ClampTime(kind sqltype.Kind, v time.Time) time.Time {
	info, ok := t.manifest.Type(kind)
	if !ok || kind == sqltype.Time {
		return v
	}
	cmp := v
	if kind != sqltype.DateTimeOffset {
		// compare wall clock values
		cmp = time.Date(v.Year(), v.Month(), v.Day(), v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), time.UTC)
	}
	if lo, err := parseBound(info.Min); err == nil && cmp.Before(lo) {
		return lo
	}
	if hi, err := parseBound(info.Max); err == nil && cmp.After(hi) {
		return hi
	}
	return v
}

var boundLayouts = []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02"}

func parseBound(s string) (time.Time, error) {
	var err error
	for _, layout := range boundLayouts {
		var v time.Time
		if v, err = time.Parse(layout, s); err == nil {
			return v, nil
		}
	}
	return time.Time{}, err
}
