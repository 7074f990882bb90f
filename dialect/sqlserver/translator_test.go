package sqlserver

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/dialect"
	"github.com/syssam/sqlsrv/sqldom"
	"github.com/syssam/sqlsrv/sqltype"
)

func newTranslator(t *testing.T, v dialect.Version) *Translator {
	t.Helper()
	m, err := ManifestFor(v)
	require.NoError(t, err)
	return NewTranslator(m)
}

func TestTranslatorChain(t *testing.T) {
	v09 := newTranslator(t, dialect.V09)
	assert.Equal(t, dialect.V09, v09.Version())
	assert.Nil(t, v09.Base())

	v14 := newTranslator(t, dialect.V14)
	assert.Equal(t, dialect.V11, v14.Version(), "2016 and 2017 inherit the 2012 tables")
	require.NotNil(t, v14.Base())
	assert.Equal(t, dialect.V10, v14.Base().Version())
	assert.Equal(t, dialect.V09, v14.Base().Base().Version())

	name, ok := v14.Function(sqldom.FnUpper)
	assert.True(t, ok, "found in base")
	assert.Equal(t, "UPPER", name)
	_, ok = v09.Function(sqldom.FnConcat)
	assert.False(t, ok)
	name, _ = v14.Function(sqldom.FnCurrentDateTime)
	assert.Equal(t, "SYSDATETIME()", name, "overridden by 2008")

	assert.Equal(t, 3, v09.TimeFractionDigits())
	assert.Equal(t, 7, v14.TimeFractionDigits())
}

func TestQuote(t *testing.T) {
	tr := newTranslator(t, dialect.V14)
	assert.Equal(t, "[order]", tr.Quote("order"))
	assert.Equal(t, "[a]]b]", tr.Quote("a]b"))
	assert.Equal(t, "[dbo].[users]", tr.QuoteName("dbo", "users"))
	assert.Equal(t, "[users]", tr.QuoteName("", "users"))
}

func TestLiteral(t *testing.T) {
	tr := newTranslator(t, dialect.V14)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		value any
		want  string
	}{
		{nil, "NULL"},
		{true, "CAST(1 AS bit)"},
		{false, "CAST(0 AS bit)"},
		{42, "42"},
		{int8(-8), "-8"},
		{uint32(7), "7"},
		{uint64(math.MaxUint64), "CAST(18446744073709551615 AS decimal(20,0))"},
		{1.5, "1.5"},
		{2.0, "2e0"},
		{float32(0.25), "0.25"},
		{decimal.RequireFromString("12.340"), "12.34"},
		{"it's", "N'it''s'"},
		{[]byte{0xde, 0xad}, "0xDEAD"},
		{id, "CAST('6ba7b810-9dad-11d1-80b4-00c04fd430c8' AS uniqueidentifier)"},
		{90 * time.Second, "CAST(90000000000 AS bigint)"},
		{civil.Date{Year: 2024, Month: time.February, Day: 29}, "CAST('2024-02-29' AS date)"},
		{civil.Time{Hour: 13, Minute: 5, Second: 9}, "CAST('13:05:09.0000000' AS time)"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", 2*3600)), "CAST('2024-01-02T03:04:05.0000000+02:00' AS datetimeoffset)"},
	}
	for _, tt := range tests {
		got, err := tr.Literal(tt.value, false)
		require.NoError(t, err, "%v", tt.value)
		assert.Equal(t, tt.want, got)
	}

	ansi, err := tr.Literal("abc", true)
	require.NoError(t, err)
	assert.Equal(t, "'abc'", ansi)

	_, err = tr.Literal(math.NaN(), false)
	assert.True(t, sqlsrv.IsValidationError(err))
	_, err = tr.Literal(struct{}{}, false)
	assert.True(t, sqlsrv.IsUnsupportedFeature(err))
}

func TestLiteralClamp(t *testing.T) {
	v09 := newTranslator(t, dialect.V09)
	got, err := v09.Literal(time.Date(1700, 5, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, "CAST('1753-01-01T00:00:00.000' AS datetime)", got)

	got, err = v09.Literal(civil.Time{Hour: 8, Minute: 30}, false)
	require.NoError(t, err)
	assert.Equal(t, "CAST('1900-01-01T08:30:00.000' AS datetime)", got, "times are stored on the 1900 epoch")

	v10 := newTranslator(t, dialect.V10)
	got, err = v10.Literal(time.Date(1700, 5, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, "CAST('1700-05-01T00:00:00.0000000' AS datetime2)", got, "datetime2 covers year 1")
}

func TestLiteralRoundTrip(t *testing.T) {
	tr := newTranslator(t, dialect.V14)
	want := time.Date(2023, 7, 14, 9, 26, 53, 589793200, time.UTC)
	got, err := tr.Literal(want, false)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "CAST('"))
	text := got[len("CAST('"):strings.Index(got, "' AS")]
	parsed, err := time.Parse(tr.format(sqltype.DateTime).Layout, text)
	require.NoError(t, err)
	assert.True(t, want.Equal(parsed))
}

func TestLockHint(t *testing.T) {
	tr := newTranslator(t, dialect.V14)
	assert.Empty(t, tr.LockHint(sqldom.LockNone, sqldom.LockNoWait))
	assert.Equal(t, "WITH (ROWLOCK, HOLDLOCK)", tr.LockHint(sqldom.LockShared, sqldom.LockWait))
	assert.Equal(t, "WITH (ROWLOCK, UPDLOCK, NOWAIT)", tr.LockHint(sqldom.LockUpdate, sqldom.LockNoWait))
	assert.Equal(t, "WITH (ROWLOCK, XLOCK, READPAST)", tr.LockHint(sqldom.LockExclusive, sqldom.LockSkipLocked))
}

func TestTranslatorFragments(t *testing.T) {
	tr := newTranslator(t, dialect.V14)
	s := &sqldom.Select{Limit: sqldom.Lit(1)}
	assert.Equal(t, Fragment{Open: " TOP (", Close: ")"}, tr.Select(s, SectionLimit, true))
	assert.True(t, tr.Select(s, SectionLimit, false).IsEmpty())
	assert.True(t, tr.Select(s, SectionWhere, true).IsEmpty())
	assert.True(t, tr.Select(s, SectionLock, true).IsEmpty())

	d := &sqldom.Delete{Table: &sqldom.Table{Name: "t"}}
	assert.Equal(t, " FROM ", tr.Delete(d, SectionTable).Open)
	d.From = &sqldom.Table{Name: "t"}
	assert.Equal(t, " ", tr.Delete(d, SectionTable).Open)

	assert.True(t, newTranslator(t, dialect.V09).RowConstructors(1))
	assert.False(t, newTranslator(t, dialect.V09).RowConstructors(2))
	assert.True(t, tr.RowConstructors(2))
	assert.Equal(t, "INTERSECT ALL", tr.SetOperator(sqldom.Intersect, true))
	assert.Equal(t, "CROSS APPLY", tr.Join(sqldom.CrossApply))
}

func TestSectionString(t *testing.T) {
	assert.Equal(t, "orderby", SectionOrderBy.String())
	assert.Equal(t, "section(99)", Section(99).String())
}
