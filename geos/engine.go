package geos

import (
	"encoding/json"
	"fmt"

	"github.com/GrainArc/MapStudio/models"
	"gorm.io/gorm"
)

// 几何运算全部下沉到PostGIS执行，Go侧只做GeoJSON的搬运。
// 所有函数显式接收db句柄，便于在上层事务内复用

type geoRow struct {
	GeoJSON string `gorm:"column:geojson"`
}

// UpdateFeatureGeometry 写入要素几何，入库前强制走ST_MakeValid修复
func UpdateFeatureGeometry(db *gorm.DB, featureID int64, geometry json.RawMessage) error {
	sql := `UPDATE feature SET geom = ST_MakeValid(ST_SetSRID(ST_GeomFromGeoJSON(?), 4326)) WHERE id = ?`
	return db.Exec(sql, string(geometry), featureID).Error
}

// FeatureGeometry 读取要素几何的GeoJSON表达
func FeatureGeometry(db *gorm.DB, featureID int64) (json.RawMessage, error) {
	var row geoRow
	sql := `SELECT ST_AsGeoJSON(geom) AS geojson FROM feature WHERE id = ?`
	if err := db.Raw(sql, featureID).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.GeoJSON == "" {
		return nil, nil
	}
	return json.RawMessage(row.GeoJSON), nil
}

// BooleanOp 二元布尔运算，op取union/difference/intersection。
// 引擎返回空几何时返回nil，由调用方决定是否按OperationFailed处理
func BooleanOp(db *gorm.DB, op string, idA int64, idB int64) (json.RawMessage, error) {
	stFunc := map[string]string{
		"union":        "ST_Union",
		"difference":   "ST_Difference",
		"intersection": "ST_Intersection",
	}[op]
	if stFunc == "" {
		return nil, fmt.Errorf("unknown boolean op: %s", op)
	}

	var row geoRow
	sql := fmt.Sprintf(`
		SELECT ST_AsGeoJSON(%s(a.geom, b.geom)) AS geojson
		FROM feature a, feature b
		WHERE a.id = ? AND b.id = ?
		  AND a.status = ? AND b.status = ?`, stFunc)
	if err := db.Raw(sql, idA, idB, models.StatusActive, models.StatusActive).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.GeoJSON == "" {
		return nil, nil
	}
	return json.RawMessage(row.GeoJSON), nil
}

// Buffer 测地缓冲，距离单位为米。通过geography投影保证按地表距离计算，
// 而不是平面度数
func Buffer(db *gorm.DB, featureID int64, meters float64) (json.RawMessage, error) {
	var row geoRow
	sql := `
		SELECT ST_AsGeoJSON(ST_Buffer(geography(geom), ?)::geometry) AS geojson
		FROM feature
		WHERE id = ? AND status = ?`
	if err := db.Raw(sql, meters, featureID, models.StatusActive).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.GeoJSON == "" {
		return nil, nil
	}
	return json.RawMessage(row.GeoJSON), nil
}

// Split 线切割要素，返回GeometryCollection
func Split(db *gorm.DB, featureID int64, line json.RawMessage) (json.RawMessage, error) {
	var row geoRow
	sql := `
		SELECT ST_AsGeoJSON(ST_Split(geom, ST_SetSRID(ST_GeomFromGeoJSON(?), 4326))) AS geojson
		FROM feature
		WHERE id = ? AND status = ?`
	if err := db.Raw(sql, string(line), featureID, models.StatusActive).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.GeoJSON == "" {
		return nil, nil
	}
	return json.RawMessage(row.GeoJSON), nil
}

// Centroid 要素质心
func Centroid(db *gorm.DB, featureID int64) (json.RawMessage, error) {
	var row geoRow
	sql := `SELECT ST_AsGeoJSON(ST_Centroid(geom)) AS geojson FROM feature WHERE id = ?`
	if err := db.Raw(sql, featureID).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.GeoJSON == "" {
		return nil, nil
	}
	return json.RawMessage(row.GeoJSON), nil
}

// LayerExtent 图层活动要素的外包范围 [minx, miny, maxx, maxy]
func LayerExtent(db *gorm.DB, layerID int64) ([]float64, error) {
	var result struct {
		MinX *float64 `gorm:"column:min_x"`
		MinY *float64 `gorm:"column:min_y"`
		MaxX *float64 `gorm:"column:max_x"`
		MaxY *float64 `gorm:"column:max_y"`
	}
	sql := `
		SELECT ST_XMin(extent) AS min_x, ST_YMin(extent) AS min_y,
		       ST_XMax(extent) AS max_x, ST_YMax(extent) AS max_y
		FROM (
			SELECT ST_Extent(geom) AS extent
			FROM feature
			WHERE layer_id = ? AND status = ?
		) sub`
	if err := db.Raw(sql, layerID, models.StatusActive).Scan(&result).Error; err != nil {
		return nil, err
	}
	if result.MinX == nil {
		return nil, nil
	}
	return []float64{*result.MinX, *result.MinY, *result.MaxX, *result.MaxY}, nil
}
