package services

import (
	"encoding/json"

	"github.com/GrainArc/MapStudio/geos"
	"github.com/GrainArc/MapStudio/models"
	"gorm.io/gorm"
)

// GeoJSONFeature 向下游输出的要素形态，几何已解码为GeoJSON
type GeoJSONFeature struct {
	Type       string                 `json:"type"`
	ID         int64                  `json:"id"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type GeoJSONCollection struct {
	Type     string            `json:"type"`
	Features []*GeoJSONFeature `json:"features"`
}

func NewGeoJSONCollection() *GeoJSONCollection {
	return &GeoJSONCollection{Type: "FeatureCollection", Features: []*GeoJSONFeature{}}
}

// FeatureService 要素存储。只负责要素行本身，
// 审计与版本链由调用方在同一事务内补齐
type FeatureService struct {
	db *gorm.DB
}

func NewFeatureService(db *gorm.DB) *FeatureService {
	return &FeatureService{db: db}
}

func decodeProperties(raw []byte) map[string]interface{} {
	props := map[string]interface{}{}
	if len(raw) > 0 {
		json.Unmarshal(raw, &props)
	}
	return props
}

// Create 新建要素。几何非空时经ST_MakeValid修复后写入，从不存原始几何
func (s *FeatureService) Create(layerID int64, properties map[string]interface{}, geometry json.RawMessage) (*models.Feature, error) {
	var layer models.Layer
	if err := s.db.Where("id = ?", layerID).First(&layer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("layer %d not found", layerID)
		}
		return nil, err
	}

	if properties == nil {
		properties = map[string]interface{}{}
	}
	propJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, NewValidationError("invalid properties: %v", err)
	}

	feature := models.Feature{
		LayerID:    layerID,
		Properties: propJSON,
		Status:     models.StatusActive,
	}
	if err := s.db.Create(&feature).Error; err != nil {
		return nil, err
	}

	if len(geometry) > 0 && hasGeometryBackend(s.db) {
		if err := geos.UpdateFeatureGeometry(s.db, feature.ID, geometry); err != nil {
			return nil, err
		}
	}
	return &feature, nil
}

func (s *FeatureService) Get(id int64) (*models.Feature, error) {
	var feature models.Feature
	result := s.db.Where("id = ?", id).First(&feature)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("feature %d not found", id)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &feature, nil
}

// GetActive 仅命中active状态的要素，history按不存在处理
func (s *FeatureService) GetActive(id int64) (*models.Feature, error) {
	var feature models.Feature
	result := s.db.Where("id = ? AND status = ?", id, models.StatusActive).First(&feature)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("feature %d not found", id)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &feature, nil
}

// UpdateProperties 属性整体替换，不做合并
func (s *FeatureService) UpdateProperties(id int64, properties map[string]interface{}) error {
	propJSON, err := json.Marshal(properties)
	if err != nil {
		return NewValidationError("invalid properties: %v", err)
	}
	return s.db.Model(&models.Feature{}).Where("id = ?", id).Update("properties", propJSON).Error
}

func (s *FeatureService) UpdateStatus(id int64, status string) error {
	if status != models.StatusActive && status != models.StatusHistory {
		return NewValidationError("invalid status: %s", status)
	}
	return s.db.Model(&models.Feature{}).Where("id = ?", id).Update("status", status).Error
}

func (s *FeatureService) UpdateGeometry(id int64, geometry json.RawMessage) error {
	if len(geometry) == 0 {
		return NewValidationError("geometry is required")
	}
	return geos.UpdateFeatureGeometry(s.db, id, geometry)
}

// Materialize 输出完整要素，属性中附带_id与_layer_id
func (s *FeatureService) Materialize(id int64) (*GeoJSONFeature, error) {
	var row struct {
		ID         int64  `gorm:"column:id"`
		LayerID    int64  `gorm:"column:layer_id"`
		Properties []byte `gorm:"column:properties"`
		GeoJSON    string `gorm:"column:geojson"`
	}
	sql := `SELECT id, layer_id, properties, ST_AsGeoJSON(geom) AS geojson FROM feature WHERE id = ?`
	if !hasGeometryBackend(s.db) {
		sql = `SELECT id, layer_id, properties FROM feature WHERE id = ?`
	}
	if err := s.db.Raw(sql, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, NewNotFoundError("feature %d not found", id)
	}

	props := decodeProperties(row.Properties)
	props["_id"] = row.ID
	props["_layer_id"] = row.LayerID

	out := &GeoJSONFeature{Type: "Feature", ID: row.ID, Properties: props}
	if row.GeoJSON != "" {
		out.Geometry = json.RawMessage(row.GeoJSON)
	}
	return out, nil
}

type featureRow struct {
	ID         int64  `gorm:"column:id"`
	LayerID    int64  `gorm:"column:layer_id"`
	Properties []byte `gorm:"column:properties"`
	GeoJSON    string `gorm:"column:geojson"`
	IsValid    *bool  `gorm:"column:is_valid"`
}

func rowsToCollection(rows []featureRow) *GeoJSONCollection {
	collection := NewGeoJSONCollection()
	for _, row := range rows {
		props := decodeProperties(row.Properties)
		props["_id"] = row.ID
		props["_layer_id"] = row.LayerID
		if row.IsValid != nil {
			props["_is_valid"] = *row.IsValid
		}
		f := &GeoJSONFeature{Type: "Feature", ID: row.ID, Properties: props}
		if row.GeoJSON != "" {
			f.Geometry = json.RawMessage(row.GeoJSON)
		}
		collection.Features = append(collection.Features, f)
	}
	return collection
}

// ListActive 图层活动要素列表，可选bbox过滤，附带几何有效性标记
func (s *FeatureService) ListActive(layerID int64, bbox []float64) (*GeoJSONCollection, error) {
	sql := `
		SELECT id, layer_id, properties,
		       ST_AsGeoJSON(geom) AS geojson,
		       ST_IsValid(geom) AS is_valid
		FROM feature
		WHERE layer_id = ? AND status = ?`
	args := []interface{}{layerID, models.StatusActive}

	if len(bbox) == 4 {
		sql += ` AND geom && ST_MakeEnvelope(?, ?, ?, ?, 4326)`
		args = append(args, bbox[0], bbox[1], bbox[2], bbox[3])
	}

	var rows []featureRow
	if err := s.db.Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToCollection(rows), nil
}

// SelectForSync 离线同步的要素子集选择
func (s *FeatureService) SelectForSync(layerID int64, syncType string, bbox []float64, featureIDs []int64) (*GeoJSONCollection, error) {
	sql := `
		SELECT id, layer_id, properties, ST_AsGeoJSON(geom) AS geojson
		FROM feature
		WHERE layer_id = ? AND status = ?`
	args := []interface{}{layerID, models.StatusActive}

	switch syncType {
	case models.SyncTypeFull:
	case models.SyncTypeBBox:
		if len(bbox) != 4 {
			return nil, NewValidationError("bbox sync requires a 4-element bbox")
		}
		sql += ` AND geom && ST_MakeEnvelope(?, ?, ?, ?, 4326)`
		args = append(args, bbox[0], bbox[1], bbox[2], bbox[3])
	case models.SyncTypeSelected:
		if len(featureIDs) == 0 {
			return nil, NewValidationError("selected sync requires feature_ids")
		}
		sql += ` AND id IN ?`
		args = append(args, featureIDs)
	default:
		return nil, NewValidationError("invalid sync type: %s", syncType)
	}

	var rows []featureRow
	if err := s.db.Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToCollection(rows), nil
}

// 空间查询类型
const (
	QueryIntersects     = "intersects"
	QueryWithinRadius   = "within_radius"
	QueryPointInPolygon = "point_in_polygon"
)

// SpatialQuery 空间检索，只扫active要素。
// within_radius经geography计算，半径单位为米
func (s *FeatureService) SpatialQuery(layerID int64, queryType string, geometry json.RawMessage, lng float64, lat float64, radius float64) (*GeoJSONCollection, error) {
	base := `
		SELECT id, layer_id, properties, ST_AsGeoJSON(geom) AS geojson
		FROM feature
		WHERE layer_id = ? AND status = ?`

	var sql string
	var args []interface{}
	switch queryType {
	case QueryIntersects:
		if len(geometry) == 0 {
			return nil, NewValidationError("intersects query requires geometry")
		}
		sql = base + ` AND ST_Intersects(geom, ST_SetSRID(ST_GeomFromGeoJSON(?), 4326))`
		args = []interface{}{layerID, models.StatusActive, string(geometry)}
	case QueryWithinRadius:
		if radius < 0 {
			return nil, NewValidationError("radius must be non-negative")
		}
		sql = base + ` AND ST_DWithin(geography(geom), geography(ST_SetSRID(ST_MakePoint(?, ?), 4326)), ?)`
		args = []interface{}{layerID, models.StatusActive, lng, lat, radius}
	case QueryPointInPolygon:
		sql = base + ` AND ST_Contains(geom, ST_SetSRID(ST_MakePoint(?, ?), 4326))`
		args = []interface{}{layerID, models.StatusActive, lng, lat}
	default:
		return nil, NewValidationError("invalid query type: %s", queryType)
	}

	var rows []featureRow
	if err := s.db.Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToCollection(rows), nil
}
