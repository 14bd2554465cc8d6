package pgmvt

import (
	"math"
)

// Web Mercator半球周长的一半，EPSG:3857的坐标上界
const MercatorRadius = 20037508.34

// XyzLonLat 瓦片编号转瓦片左上角经纬度
func XyzLonLat(x float64, y float64, z float64) []float64 {
	n := math.Pow(2, z)
	LonDeg := (x/n)*360.0 - 180.0
	LatRad := math.Atan(math.Sinh(math.Pi * (1 - (2*y)/n)))
	LatDeg := (180 * LatRad) / math.Pi
	return []float64{LonDeg, LatDeg}
}

// LonToMercX 经度转3857横坐标
func LonToMercX(lon float64) float64 {
	return lon * MercatorRadius / 180
}

// LatToMercY 纬度转3857纵坐标
func LatToMercY(lat float64) float64 {
	return math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180) * MercatorRadius / 180
}

// Bounds 瓦片范围，经纬度与3857投影坐标各一套
type Bounds struct {
	LonMin float64
	LatMin float64
	LonMax float64
	LatMax float64
	MinX   float64
	MinY   float64
	MaxX   float64
	MaxY   float64
}

// TileToBounds 标准slippy瓦片编号转地理范围。
// y向下增长，所以瓦片下边界取y+1
func TileToBounds(z int, x int, y int) Bounds {
	min := XyzLonLat(float64(x), float64(y), float64(z))
	max := XyzLonLat(float64(x)+1, float64(y)+1, float64(z))

	b := Bounds{
		LonMin: min[0],
		LatMax: min[1],
		LonMax: max[0],
		LatMin: max[1],
	}
	b.MinX = LonToMercX(b.LonMin)
	b.MaxX = LonToMercX(b.LonMax)
	b.MinY = LatToMercY(b.LatMin)
	b.MaxY = LatToMercY(b.LatMax)
	return b
}
