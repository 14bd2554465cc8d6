package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{NewValidationError("bad input %d", 1), KindValidation},
		{NewNotFoundError("missing"), KindNotFound},
		{NewConflictError("race", nil), KindConflict},
		{NewOperationFailedError("empty result"), KindOperationFailed},
		{NewExternalToolError("gdal", "stderr text", nil), KindExternalTool},
		{NewExpiredError("gone"), KindExpired},
	}
	for _, tc := range cases {
		kind, ok := KindOf(tc.err)
		require.True(t, ok)
		assert.Equal(t, tc.kind, kind)
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("x")))
	assert.True(t, IsNotFound(NewNotFoundError("x")))
	assert.True(t, IsConflict(NewConflictError("x", nil)))
	assert.True(t, IsOperationFailed(NewOperationFailedError("x")))
	assert.True(t, IsExternalTool(NewExternalToolError("x", "", nil)))
	assert.True(t, IsExpired(NewExpiredError("x")))

	assert.False(t, IsNotFound(NewValidationError("x")))
	assert.False(t, IsNotFound(errors.New("plain")))
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewConflictError("version race", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestErrorWrappedKindSurvives(t *testing.T) {
	err := fmt.Errorf("apply change: %w", NewNotFoundError("feature 9 not found"))
	assert.True(t, IsNotFound(err))
}

func TestExternalToolErrorMessage(t *testing.T) {
	err := NewExternalToolError("ogr2ogr failed", "FAILURE: Unable to open datasource", nil)
	assert.Contains(t, err.Error(), "ogr2ogr failed")
}
