package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestZoomInRange(t *testing.T) {
	// 未配置时走0-22缺省区间
	assert.True(t, zoomInRange(0, nil, nil))
	assert.True(t, zoomInRange(22, nil, nil))
	assert.False(t, zoomInRange(23, nil, nil))
	assert.False(t, zoomInRange(-1, nil, nil))

	assert.True(t, zoomInRange(10, intPtr(8), intPtr(14)))
	assert.True(t, zoomInRange(8, intPtr(8), intPtr(14)))
	assert.True(t, zoomInRange(14, intPtr(8), intPtr(14)))
	assert.False(t, zoomInRange(7, intPtr(8), intPtr(14)))
	assert.False(t, zoomInRange(15, intPtr(8), intPtr(14)))

	// 只设一端，另一端用缺省
	assert.True(t, zoomInRange(22, intPtr(5), nil))
	assert.False(t, zoomInRange(4, intPtr(5), nil))
}

func TestTileEnableValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewTileService(db)

	_, err := svc.Enable(1, intPtr(10), intPtr(5))
	assert.True(t, IsValidation(err))

	_, err = svc.Enable(1, intPtr(-1), intPtr(10))
	assert.True(t, IsValidation(err))

	_, err = svc.Enable(404, nil, nil)
	assert.True(t, IsNotFound(err))
}

func TestTileDisableMissing(t *testing.T) {
	db := newTestDB(t)
	err := NewTileService(db).Disable(404)
	assert.True(t, IsNotFound(err))
}
