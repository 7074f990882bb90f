package sqlsrv_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlsrv"
)

func TestUnsupportedFeatureError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sqlsrv.NewUnsupportedFeatureError("INTERSECT ALL", "SQL Server 2012")
		assert.Equal(t, "sqlsrv: INTERSECT ALL is not supported by SQL Server 2012", err.Error())
		assert.Equal(t, "sqlsrv: MERGE is not supported", sqlsrv.NewUnsupportedFeatureError("MERGE", "").Error())
	})

	t.Run("IsUnsupportedFeature", func(t *testing.T) {
		err := sqlsrv.NewUnsupportedFeatureError("OFFSET", "SQL Server 2005")
		assert.True(t, errors.Is(err, sqlsrv.ErrUnsupportedFeature))
		assert.True(t, sqlsrv.IsUnsupportedFeature(fmt.Errorf("compile: %w", err)))
		assert.False(t, sqlsrv.IsUnsupportedFeature(errors.New("other")))
		assert.False(t, sqlsrv.IsUnsupportedFeature(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sqlsrv.NewValidationError("full-text index", "more than one language", "dbo", "Doc", "Body")
		assert.Equal(t, "sqlsrv: invalid full-text index dbo.Doc.Body: more than one language", err.Error())
		assert.Equal(t, "sqlsrv: invalid trim: bad", sqlsrv.NewValidationError("trim", "bad").Error())
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := sqlsrv.NewValidationError("schema filter", "unknown schema", "sales")
		assert.True(t, errors.Is(err, sqlsrv.ErrValidation))
		assert.True(t, sqlsrv.IsValidationError(fmt.Errorf("wrapped: %w", err)))
		assert.False(t, sqlsrv.IsValidationError(sqlsrv.NewNotFoundError("schema", 5)))
	})
}

func TestNotFoundError(t *testing.T) {
	err := sqlsrv.NewNotFoundError("object", int64(42))
	assert.Equal(t, "sqlsrv: object not found (id=42)", err.Error())
	assert.True(t, sqlsrv.IsNotFound(err))
	assert.True(t, sqlsrv.IsNotFound(&sqlsrv.StageError{Stage: "indexes", Err: err}))
	assert.False(t, sqlsrv.IsNotFound(nil))
}

func TestAggregateError(t *testing.T) {
	require.NoError(t, sqlsrv.NewAggregateError(nil, nil))

	single := errors.New("one")
	assert.Equal(t, single, sqlsrv.NewAggregateError(nil, single))

	err := sqlsrv.NewAggregateError(single, sqlsrv.NewNotFoundError("type", 300))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors")
	assert.True(t, sqlsrv.IsNotFound(err))
}
