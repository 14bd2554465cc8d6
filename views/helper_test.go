package views

import (
	"errors"
	"net/http"
	"testing"

	"github.com/GrainArc/MapStudio/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.NewValidationError("bad"), http.StatusBadRequest},
		{services.NewNotFoundError("missing"), http.StatusNotFound},
		{services.NewExpiredError("stale"), http.StatusNotFound},
		{services.NewConflictError("race", nil), http.StatusConflict},
		{services.NewOperationFailedError("empty"), http.StatusUnprocessableEntity},
		{services.NewExternalToolError("gdal", "", nil), http.StatusUnprocessableEntity},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err), tc.err.Error())
	}
}

func TestParseBBox(t *testing.T) {
	bbox, ok := parseBBox("1.5, -2, 3, 4.25")
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, -2, 3, 4.25}, bbox)

	// 为空表示不过滤
	bbox, ok = parseBBox("")
	assert.True(t, ok)
	assert.Nil(t, bbox)

	_, ok = parseBBox("1,2,3")
	assert.False(t, ok)
	_, ok = parseBBox("a,b,c,d")
	assert.False(t, ok)
}
