package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewLogDriver(OpenDB(db), WithLogger(logger), WithSlowThreshold(time.Hour))

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows, err := drv.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE FROM").WillReturnError(errors.New("boom"))
	err = drv.Exec(context.Background(), "DELETE FROM [users]", []any{}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(1), s.TotalExecs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(0), s.SlowQueries)
	assert.Contains(t, s.String(), "queries=1 execs=1")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=statement")
	assert.Contains(t, out, "level=ERROR msg=\"statement failed\"")
	assert.Contains(t, out, "boom")
}

func TestLogDriverSlow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	drv := NewLogDriver(OpenDB(db), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithSlowThreshold(-1))

	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = drv.ExecContext(context.Background(), "UPDATE [users] SET [name] = N'x'")
	require.NoError(t, err)
	assert.Equal(t, int64(1), drv.QueryStats().Stats().SlowQueries)
	assert.Contains(t, buf.String(), "slow statement")
}
