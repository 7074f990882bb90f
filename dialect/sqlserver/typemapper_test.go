package sqlserver

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlsrv/dialect"
	"github.com/syssam/sqlsrv/sqltype"
)

func mapper(t *testing.T, v dialect.Version) *TypeMapper {
	t.Helper()
	m, err := ManifestFor(v)
	require.NoError(t, err)
	return NewTypeMapper(m)
}

func TestStringCapacity(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 16},
		{16, 16},
		{17, 32},
		{100, 128},
		{2049, 4000},
		{4000, 4000},
		{4001, sqltype.Max},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StringCapacity(tt.n), tt.n)
	}
}

func TestNativeName(t *testing.T) {
	v09, v10 := mapper(t, dialect.V09), mapper(t, dialect.V10)
	ansi := sqltype.WithLength(sqltype.VarChar, 6000)
	ansi.Native = "varchar"
	tests := []struct {
		tm   *TypeMapper
		typ  sqltype.Type
		want string
	}{
		{v10, sqltype.WithLength(sqltype.VarChar, 50), "nvarchar(50)"},
		{v10, sqltype.WithLength(sqltype.VarChar, 5000), "nvarchar(max)"},
		{v10, sqltype.WithLength(sqltype.VarChar, sqltype.Max), "nvarchar(max)"},
		{v10, sqltype.New(sqltype.VarChar), "nvarchar(4000)"},
		{v10, ansi, "varchar(6000)"},
		{v10, sqltype.WithLength(sqltype.VarCharMax, sqltype.Max), "nvarchar(max)"},
		{v10, sqltype.WithLength(sqltype.Char, 10), "nchar(10)"},
		{v10, sqltype.WithLength(sqltype.VarBinary, 16), "varbinary(16)"},
		{v10, sqltype.New(sqltype.Decimal), "decimal(18,0)"},
		{v10, sqltype.WithPrecision(sqltype.Decimal, 10, 2), "decimal(10,2)"},
		{v10, sqltype.New(sqltype.UInt64), "decimal(20,0)"},
		{v10, sqltype.New(sqltype.UInt32), "bigint"},
		{v10, sqltype.New(sqltype.Int8), "smallint"},
		{v10, sqltype.New(sqltype.DateTime), "datetime2"},
		{v10, sqltype.WithPrecision(sqltype.DateTime, 3, 0), "datetime2(3)"},
		{v09, sqltype.WithPrecision(sqltype.DateTime, 3, 0), "datetime"},
		{v09, sqltype.New(sqltype.Date), "datetime"},
		{v10, sqltype.New(sqltype.Date), "date"},
		{v10, sqltype.New(sqltype.Guid), "uniqueidentifier"},
		{v10, sqltype.New(sqltype.Interval), "bigint"},
		{v10, sqltype.OtherType("geography"), "geography"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tm.NativeName(tt.typ), tt.typ.String())
	}
}

func TestDeclaredName(t *testing.T) {
	tm := mapper(t, dialect.V14)
	short := tm.ParameterType("abc", nil)
	assert.Equal(t, "nvarchar(16)", tm.DeclaredName(short, false))
	assert.Equal(t, "varchar(16)", tm.DeclaredName(short, true))
	long := tm.ParameterType(strings.Repeat("x", 5000), nil)
	assert.Equal(t, "nvarchar(max)", tm.DeclaredName(long, false))
	assert.Equal(t, "varchar(max)", tm.DeclaredName(long, true))
	assert.Equal(t, "nchar(10)", tm.DeclaredName(sqltype.WithLength(sqltype.Char, 10), false))
	assert.Equal(t, "char(10)", tm.DeclaredName(sqltype.WithLength(sqltype.Char, 10), true))
	assert.Equal(t, "bigint", tm.DeclaredName(tm.ParameterType(int64(7), nil), true))
	assert.Empty(t, tm.DeclaredName(tm.ParameterType(struct{}{}, nil), false))
}

func TestRequiresCast(t *testing.T) {
	v09, v10 := mapper(t, dialect.V09), mapper(t, dialect.V10)
	assert.True(t, v09.RequiresCast(sqltype.Date))
	assert.False(t, v10.RequiresCast(sqltype.Date))
	assert.True(t, v10.RequiresCast(sqltype.UInt64))
	assert.True(t, v10.RequiresCast(sqltype.Interval))
	assert.False(t, v10.RequiresCast(sqltype.Int32))
}

func TestInferType(t *testing.T) {
	tm := mapper(t, dialect.V11)
	assert.Equal(t, "Boolean", tm.InferType(true).String())
	assert.Equal(t, "Int64", tm.InferType(42).String())
	assert.Equal(t, "UInt64", tm.InferType(uint64(1)).String())
	assert.Equal(t, "VarChar(16)", tm.InferType("abc").String())
	assert.Equal(t, "VarChar(max)", tm.InferType(strings.Repeat("x", 4001)).String())
	assert.Equal(t, "Decimal(5,2)", tm.InferType(decimal.RequireFromString("-123.45")).String())
	assert.Equal(t, "VarBinary(3)", tm.InferType([]byte{1, 2, 3}).String())
	assert.Equal(t, "DateTime", tm.InferType(time.Now()).String())
	assert.Equal(t, "Date", tm.InferType(civil.Date{Year: 2020, Month: 1, Day: 1}).String())
	assert.Equal(t, "Interval", tm.InferType(time.Second).String())
	assert.Equal(t, "Guid", tm.InferType(uuid.New()).String())
	assert.Equal(t, sqltype.Unknown, tm.InferType(struct{}{}).Kind)
}

func TestParameterType(t *testing.T) {
	tm := mapper(t, dialect.V11)
	declared := sqltype.WithLength(sqltype.VarChar, 10)
	assert.Equal(t, "VarChar(32)", tm.ParameterType(strings.Repeat("x", 20), &declared).String())
	i := sqltype.New(sqltype.Int32)
	assert.Equal(t, "Int32", tm.ParameterType(int64(1), &i).String())
	assert.Equal(t, "Int64", tm.ParameterType(int64(1), nil).String())
}

func TestBind(t *testing.T) {
	v09, v11 := mapper(t, dialect.V09), mapper(t, dialect.V11)

	t.Run("Strings", func(t *testing.T) {
		v, err := v11.Bind("abc", sqltype.VarChar, false)
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
		v, err = v11.Bind("abc", sqltype.VarChar, true)
		require.NoError(t, err)
		assert.Equal(t, mssql.VarChar("abc"), v)
		long := strings.Repeat("x", 4001)
		v, err = v11.Bind(long, sqltype.VarChar, false)
		require.NoError(t, err)
		assert.Equal(t, mssql.NVarCharMax(long), v)
		long = strings.Repeat("x", 8001)
		v, err = v11.Bind(long, sqltype.VarChar, true)
		require.NoError(t, err)
		assert.Equal(t, mssql.VarCharMax(long), v)
	})

	t.Run("Unsigned", func(t *testing.T) {
		v, err := v11.Bind(uint64(18446744073709551615), sqltype.UInt64, false)
		require.NoError(t, err)
		assert.Equal(t, "18446744073709551615", v)
		v, err = v11.Bind(uint32(7), sqltype.UInt32, false)
		require.NoError(t, err)
		assert.Equal(t, int64(7), v)
		v, err = v11.Bind(uint16(7), sqltype.UInt16, false)
		require.NoError(t, err)
		assert.Equal(t, int32(7), v)
	})

	t.Run("Temporal", func(t *testing.T) {
		ts := time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)
		v, err := v11.Bind(ts, sqltype.DateTime, false)
		require.NoError(t, err)
		assert.Equal(t, civil.DateTimeOf(ts), v)
		v, err = v11.Bind(ts, sqltype.Date, false)
		require.NoError(t, err)
		assert.Equal(t, civil.DateOf(ts), v)
		v, err = v09.Bind(ts, sqltype.DateTime, false)
		require.NoError(t, err)
		assert.Equal(t, mssql.DateTime1(ts), v)
		v, err = v09.Bind(civil.Date{Year: 2020, Month: 3, Day: 4}, sqltype.Date, false)
		require.NoError(t, err)
		assert.Equal(t, mssql.DateTime1(time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)), v)
		v, err = v11.Bind(90*time.Second, sqltype.Interval, false)
		require.NoError(t, err)
		assert.Equal(t, int64(90*time.Second), v)
	})

	t.Run("Guid", func(t *testing.T) {
		id := uuid.MustParse("6f9619ff-8b86-d011-b42d-00c04fc964ff")
		v, err := v11.Bind(id, sqltype.Guid, false)
		require.NoError(t, err)
		assert.Equal(t, mssql.UniqueIdentifier(id), v)
	})

	v, err := v11.Bind(nil, sqltype.Int32, false)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRead(t *testing.T) {
	tm := mapper(t, dialect.V11)

	v, err := tm.Read(sqltype.Decimal, []byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	assert.True(t, sqltype.MaxDecimal.Equal(v.(decimal.Decimal)), "clamped to the neutral range")
	v, err = tm.Read(sqltype.Decimal, []byte("-12345678901234567890123456789012"))
	require.NoError(t, err)
	assert.True(t, sqltype.MinDecimal.Equal(v.(decimal.Decimal)))
	v, err = tm.Read(sqltype.Decimal, "1.25")
	require.NoError(t, err)
	assert.Equal(t, "1.25", v.(decimal.Decimal).String())

	v, err = tm.Read(sqltype.UInt64, []byte("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), v)

	v, err = tm.Read(sqltype.Interval, int64(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, v)

	v, err = tm.Read(sqltype.Int8, int64(-3))
	require.NoError(t, err)
	assert.Equal(t, int8(-3), v)

	v, err = tm.Read(sqltype.Guid, "6F9619FF-8B86-D011-B42D-00C04FC964FF")
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("6f9619ff-8b86-d011-b42d-00c04fc964ff"), v)

	ts := time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC)
	v, err = tm.Read(sqltype.Date, ts)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2021, Month: 5, Day: 6}, v)

	v, err = tm.Read(sqltype.VarChar, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	v, err = tm.Read(sqltype.Int32, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = tm.Read(sqltype.Interval, "soon")
	assert.Error(t, err)
}

func TestResolveNative(t *testing.T) {
	tm := mapper(t, dialect.V11)
	tests := []struct {
		name                        string
		maxLength, precision, scale int
		want                        string
	}{
		{"bit", 1, 1, 0, "Boolean"},
		{"tinyint", 1, 3, 0, "UInt8"},
		{"int", 4, 10, 0, "Int32"},
		{"decimal", 9, 10, 2, "Decimal(10,2)"},
		{"float", 8, 53, 0, "Double"},
		{"real", 4, 24, 0, "Float"},
		{"nvarchar", 100, 0, 0, "VarChar(50)"},
		{"nvarchar", -1, 0, 0, "VarCharMax(max)"},
		{"nchar", 20, 0, 0, "Char(10)"},
		{"varchar", 30, 0, 0, "VarChar(30)"},
		{"varbinary", -1, 0, 0, "VarBinaryMax(max)"},
		{"datetime2", 8, 27, 7, "DateTime(7,0)"},
		{"date", 3, 10, 0, "Date"},
		{"uniqueidentifier", 16, 0, 0, "Guid"},
		{"rowversion", 8, 0, 0, "Binary(8)"},
		{"sysname", 256, 0, 0, "VarChar(128)"},
		{"geography", -1, 0, 0, "geography"},
		{"XML", -1, 0, 0, "xml"},
	}
	for _, tt := range tests {
		typ, ok := tm.ResolveNative(tt.name, tt.maxLength, tt.precision, tt.scale)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, typ.String(), tt.name)
		assert.NoError(t, typ.Validate(), tt.name)
	}

	varchar, _ := tm.ResolveNative("varchar", 30, 0, 0)
	assert.Equal(t, "varchar(30)", tm.NativeName(varchar), "ansi strings round trip")
	_, ok := tm.ResolveNative("mytype", 4, 0, 0)
	assert.False(t, ok)
}
