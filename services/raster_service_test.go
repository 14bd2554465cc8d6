package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtentToBounds(t *testing.T) {
	ring := [][][]float64{{
		{100.0, 30.0},
		{101.5, 30.0},
		{101.5, 31.2},
		{100.0, 31.2},
		{100.0, 30.0},
	}}
	bounds := extentToBounds(ring)
	require.Len(t, bounds, 4)
	assert.Equal(t, []float64{100.0, 30.0, 101.5, 31.2}, bounds)
}

func TestExtentToBoundsEmpty(t *testing.T) {
	assert.Nil(t, extentToBounds(nil))
	assert.Nil(t, extentToBounds([][][]float64{}))
}

func TestRasterGetMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewRasterService(db, t.TempDir())

	_, err := svc.Get(123)
	assert.True(t, IsNotFound(err))

	_, err = svc.GenerateTiles(5, 0, 12)
	assert.True(t, IsNotFound(err))

	_, err = svc.GenerateTiles(5, 12, 3)
	assert.True(t, IsValidation(err))
}
