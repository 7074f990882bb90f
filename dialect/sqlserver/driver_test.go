package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlsrv"
	"github.com/syssam/sqlsrv/dialect"
	sqldialect "github.com/syssam/sqlsrv/dialect/sql"
	"github.com/syssam/sqlsrv/sqldom"
	"github.com/syssam/sqlsrv/sqltype"
)

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		product string
		want    dialect.Version
	}{
		{"9.00.5000.00", dialect.V09},
		{"10.50.6000.34", dialect.V10},
		{"12.0.6024.0", dialect.V11},
		{"13.0.5026.0", dialect.V13},
		{"15.0.2000.5", dialect.V14},
	}
	for _, tt := range tests {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(versionQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(tt.product))
		v, err := DetectVersion(context.Background(), db)
		require.NoError(t, err, tt.product)
		assert.Equal(t, tt.want, v, tt.product)
	}

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(versionQuery)).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	_, err := DetectVersion(context.Background(), db)
	assert.Error(t, err)
}

func TestNewDriver(t *testing.T) {
	d, err := NewDriver(dialect.V11)
	require.NoError(t, err)
	assert.Equal(t, dialect.V11, d.Version())
	assert.True(t, d.Manifest().Supports(FeatureOffset))
	assert.NotNil(t, d.Compiler())

	ms, err := ParseManifest([]byte(`
versions:
  v10:
    name: custom
    max_identifier_length: 128
    max_parameter_count: 2100
    parameter_prefix: "@"
`))
	require.NoError(t, err)
	d, err = NewDriver(dialect.V10, WithManifests(ms))
	require.NoError(t, err)
	assert.Equal(t, "custom", d.Manifest().Name())
	_, err = NewDriver(dialect.V14, WithManifests(ms))
	assert.True(t, sqlsrv.IsNotFound(err))

	d, err = NewDriver(dialect.V14, WithCompilerOptions(WithFirstDayOfWeek(time.Monday)))
	require.NoError(t, err)
	cmd, err := d.Compiler().Compile(&sqldom.Extract{Part: sqldom.DayOfWeek, Operand: sqldom.Col("d"), OperandKind: sqltype.DateTime})
	require.NoError(t, err)
	assert.Equal(t, "((DATEPART(weekday, [d]) + @@DATEFIRST + 5) % 7)", cmd.Text)
}

func TestDriverQuery(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(versionQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("14.0.3381.3"))
	d, err := Connect(context.Background(), db, WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	assert.Equal(t, dialect.V14, d.Version())

	drv := sqldialect.OpenDB(db)
	s := usersSelect()
	s.Where = sqldom.Eq(sqldom.Col("u", "id"), sqldom.Param(42))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT [u].[name] FROM [dbo].[users] AS [u] WHERE [u].[id] = @p1")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("a8m"))
	rows := &sqldialect.Rows{}
	require.NoError(t, d.Query(context.Background(), drv, s, rows))
	require.True(t, rows.Next())
	var name string
	require.NoError(t, rows.Scan(&name))
	assert.Equal(t, "a8m", name)
	require.NoError(t, rows.Close())

	byName := usersSelect()
	byName.Where = sqldom.Eq(sqldom.Col("u", "name"), sqldom.Param("a8m"))
	mock.ExpectQuery(regexp.QuoteMeta("EXEC sp_executesql N'SELECT [u].[name] FROM [dbo].[users] AS [u] WHERE [u].[name] = @p1', N'@p1 nvarchar(16)', @p1 = @p1")).
		WithArgs(sql.Named("p1", "a8m")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("a8m"))
	rows = &sqldialect.Rows{}
	require.NoError(t, d.Query(context.Background(), drv, byName, rows))
	require.NoError(t, rows.Close())

	del := &sqldom.Delete{Table: &sqldom.Table{Schema: "dbo", Name: "users"}, Where: sqldom.Eq(sqldom.Col("id"), sqldom.Param(7))}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM [dbo].[users] WHERE [id] = @p1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	var res sqldialect.Result
	require.NoError(t, d.Exec(context.Background(), drv, del, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())

	// Compile errors surface before anything is sent.
	bad := &sqldom.SetOperation{Op: sqldom.Intersect, All: true, Left: usersSelect(), Right: usersSelect()}
	err = d.Query(context.Background(), drv, bad, rows)
	assert.True(t, sqlsrv.IsUnsupportedFeature(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverExtractor(t *testing.T) {
	db, mock := newMock(t)
	expectShop(mock, "shop")
	var stages []string
	d, err := NewDriver(dialect.V14,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithStageHook(func(st StageStats) { stages = append(stages, st.Stage) }),
	)
	require.NoError(t, err)
	ex, err := d.Extractor(db).Extract(context.Background(), ExtractOptions{})
	require.NoError(t, err)
	assert.Len(t, ex.Catalog.Schemas, 2)
	require.Len(t, stages, len(ex.Stats))
	for i, st := range ex.Stats {
		assert.Equal(t, st.Stage, stages[i])
	}

	_, err = DetectVersion(context.Background(), failingQuerier{})
	assert.ErrorIs(t, err, errOffline)
}

var errOffline = errors.New("offline")

type failingQuerier struct{ Querier }

func (failingQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errOffline
}
