package pgmvt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXyzLonLatWorldOrigin(t *testing.T) {
	got := XyzLonLat(0, 0, 0)
	require.Len(t, got, 2)
	assert.InDelta(t, -180.0, got[0], 1e-9)
	assert.InDelta(t, 85.0511, got[1], 0.001)
}

func TestLonToMercX(t *testing.T) {
	assert.InDelta(t, 0.0, LonToMercX(0), 1e-9)
	assert.InDelta(t, MercatorRadius, LonToMercX(180), 1e-6)
	assert.InDelta(t, -MercatorRadius/2, LonToMercX(-90), 1e-6)
}

func TestLatToMercY(t *testing.T) {
	assert.InDelta(t, 0.0, LatToMercY(0), 1e-9)
	// 墨卡托在±85.0511处与正方形世界对齐
	assert.InDelta(t, MercatorRadius, LatToMercY(85.0511287798066), 1.0)
}

func TestTileToBoundsWorld(t *testing.T) {
	b := TileToBounds(0, 0, 0)
	assert.InDelta(t, -180.0, b.LonMin, 1e-9)
	assert.InDelta(t, 180.0, b.LonMax, 1e-9)
	assert.InDelta(t, -MercatorRadius, b.MinX, 1e-6)
	assert.InDelta(t, MercatorRadius, b.MaxX, 1e-6)
	assert.Less(t, b.LatMin, b.LatMax)
	assert.Less(t, b.MinY, b.MaxY)
}

func TestTileToBoundsQuadrants(t *testing.T) {
	// z1的四块瓦片在原点相接
	nw := TileToBounds(1, 0, 0)
	se := TileToBounds(1, 1, 1)

	assert.InDelta(t, 0.0, nw.LonMax, 1e-9)
	assert.InDelta(t, 0.0, nw.LatMin, 1e-9)
	assert.InDelta(t, 0.0, se.LonMin, 1e-9)
	assert.InDelta(t, 0.0, se.LatMax, 1e-9)

	assert.InDelta(t, nw.MaxX, se.MinX, 1e-6)
	assert.InDelta(t, nw.MinY, se.MaxY, 1e-6)
}

func TestTileToBoundsNesting(t *testing.T) {
	// 子瓦片必须落在父瓦片范围内
	parent := TileToBounds(5, 10, 12)
	child := TileToBounds(6, 20, 24)

	assert.GreaterOrEqual(t, child.LonMin, parent.LonMin-1e-9)
	assert.LessOrEqual(t, child.LonMax, parent.LonMax+1e-9)
	assert.GreaterOrEqual(t, child.LatMin, parent.LatMin-1e-9)
	assert.LessOrEqual(t, child.LatMax, parent.LatMax+1e-9)
}

func TestMercRoundTrip(t *testing.T) {
	for _, lon := range []float64{-179, -45.5, 0, 13.37, 179} {
		x := LonToMercX(lon)
		assert.InDelta(t, lon, x*180/MercatorRadius, 1e-9)
	}
	// 纬度往返经过对数变换，留宽一点的容差
	for _, lat := range []float64{-80, -30, 0, 30, 80} {
		y := LatToMercY(lat)
		back := 2*math.Atan(math.Exp(y/MercatorRadius*math.Pi))*180/math.Pi - 90
		assert.InDelta(t, lat, back, 1e-6)
	}
}
