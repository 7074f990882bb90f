package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlsrv/dialect"
)

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(db)
	mock.ExpectExec("SET DATEFIRST 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "DATEFIRST", "1"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET DATEFIRST 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET LOCK_TIMEOUT 500").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	err = drv.Query(
		WithIntVar(WithVar(context.Background(), "DATEFIRST", "1"), "LOCK_TIMEOUT", 500),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec("SET DEADLOCK_PRIORITY LOW").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	err = tx.Query(
		WithVar(context.Background(), "DEADLOCK_PRIORITY", "LOW"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET DATEFIRST 7").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO users DEFAULT VALUES").WillReturnResult(sqlmock.NewResult(0, 0))
	err = drv.Exec(
		WithVar(context.Background(), "DATEFIRST", "7"),
		"INSERT INTO users DEFAULT VALUES",
		[]any{},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVarFromContext(t *testing.T) {
	ctx := WithVar(WithVar(context.Background(), "DATEFIRST", "1"), "DATEFIRST", "7")
	v, ok := VarFromContext(ctx, "DATEFIRST")
	require.True(t, ok)
	assert.Equal(t, "7", v)
	_, ok = VarFromContext(ctx, "LANGUAGE")
	assert.False(t, ok)
}

func TestOpenDB(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)
	assert.NotNil(t, drv)
	assert.Equal(t, dialect.SQLServer, drv.Dialect())
	assert.Same(t, db, drv.DB())
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)

	t.Run("simple_query", func(t *testing.T) {
		mock.ExpectQuery("SELECT \\[id\\], \\[name\\] FROM \\[users\\]").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "Alice").
				AddRow(2, "Bob"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT [id], [name] FROM [users]", []any{}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT \\[name\\] FROM \\[users\\] WHERE \\[id\\] = @p1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT [name] FROM [users] WHERE [id] = @p1", []any{1}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		expectedErr := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(expectedErr)

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		require.ErrorIs(t, err, expectedErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", 1, &Rows{})
		require.Error(t, err)
		err = drv.Query(context.Background(), "SELECT 1", []any{}, nil)
		require.Error(t, err)
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)

	t.Run("exec_with_result", func(t *testing.T) {
		mock.ExpectExec("UPDATE \\[users\\] SET \\[name\\] = @p1").
			WithArgs("Alice").
			WillReturnResult(sqlmock.NewResult(0, 3))

		var res Result
		err := drv.Exec(context.Background(), "UPDATE [users] SET [name] = @p1", []any{"Alice"}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))

		err := drv.Exec(context.Background(), "DELETE FROM [users]", []any{}, nil)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)

	t.Run("successful_commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), "INSERT INTO [users] ([name]) VALUES (N'test')", []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("error"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), "INSERT INTO [users] ([name]) VALUES (N'test')", []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverPin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)
	conn, release, err := drv.Pin(context.Background())
	require.NoError(t, err)

	mock.ExpectExec("SET DATEFIRST 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT @@DATEFIRST").WillReturnRows(sqlmock.NewRows([]string{"d"}).AddRow(1))
	rows := &Rows{}
	err = conn.Query(WithVar(context.Background(), "DATEFIRST", "1"), "SELECT @@DATEFIRST", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, release())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContextCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectQuery("SELECT").WillReturnError(context.Canceled)
	rows := &Rows{}
	err = drv.Query(ctx, "SELECT 1", []any{}, rows)
	assert.Error(t, err)
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid_simple", "DATEFIRST", true},
		{"valid_with_underscore", "LOCK_TIMEOUT", true},
		{"valid_starting_underscore", "_private", true},
		{"invalid_empty", "", false},
		{"invalid_starting_number", "123foo", false},
		{"invalid_with_space", "foo bar", false},
		{"invalid_with_dot", "schema.table", false},
		{"invalid_with_semicolon", "foo;DROP TABLE", false},
		{"invalid_too_long", string(make([]byte, 129)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isValidIdentifier(tt.input))
		})
	}
}

func TestIsValidValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"number", "500", true},
		{"negative", "-1", true},
		{"keyword", "ON", true},
		{"invalid_empty", "", false},
		{"invalid_quote", "it's", false},
		{"invalid_injection", "1; DROP TABLE users; --", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isValidValue(tt.input))
		})
	}
}

func TestWithVarsInvalid(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(db)

	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "foo; DROP TABLE users; --", "bar"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session option name")

	err = drv.Query(
		WithVar(context.Background(), "DATEFIRST", "1; DROP TABLE users"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session option value")
}
