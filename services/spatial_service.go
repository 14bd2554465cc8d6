package services

import (
	"encoding/json"

	"github.com/GrainArc/MapStudio/geos"
	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/pgmvt"
	"gorm.io/gorm"
)

// 空间运算类型
const (
	OpUnion        = "union"
	OpDifference   = "difference"
	OpIntersection = "intersection"
	OpBuffer       = "buffer"
	OpSplit        = "split"
)

// SpatialService 空间运算，产物作为新要素落库并带溯源属性
type SpatialService struct {
	db *gorm.DB
	// 切割引擎入口，可替换
	split func(db *gorm.DB, featureID int64, line json.RawMessage) (json.RawMessage, error)
}

func NewSpatialService(db *gorm.DB) *SpatialService {
	return &SpatialService{db: db, split: geos.Split}
}

// 布尔运算产物的溯源属性
func booleanProvenance(op string, ids []int64) map[string]interface{} {
	sourceIDs := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		sourceIDs = append(sourceIDs, id)
	}
	return map[string]interface{}{
		"_source":     op,
		"_source_ids": sourceIDs,
	}
}

func bufferProvenance(id int64, meters float64) map[string]interface{} {
	return map[string]interface{}{
		"_source":          OpBuffer,
		"_source_id":       id,
		"_buffer_distance": meters,
	}
}

// 切割产物继承原要素属性，再叠加溯源字段
func splitInheritance(original map[string]interface{}, originalID int64) map[string]interface{} {
	props := make(map[string]interface{}, len(original)+2)
	for k, v := range original {
		props[k] = v
	}
	props["_source"] = OpSplit
	props["_source_id"] = originalID
	return props
}

// 产物入库的公共路径：建要素、审计、初始版本、清瓦片缓存
func (s *SpatialService) persistResult(tx *gorm.DB, actor Actor, layerID int64, props map[string]interface{}, geometry json.RawMessage, description string) (*models.Feature, error) {
	fs := NewFeatureService(tx)
	feature, err := fs.Create(layerID, props, geometry)
	if err != nil {
		return nil, err
	}
	audit := NewAuditService(tx)
	if err := audit.LogFeatureCreate(actor, feature.ID, map[string]interface{}{
		"layer_id":   layerID,
		"properties": props,
	}); err != nil {
		return nil, err
	}
	vs := NewVersioningService(tx)
	if _, err := vs.CreateVersion(actor, feature.ID, description); err != nil {
		return nil, err
	}
	return feature, nil
}

// Operate 执行union/difference/intersection/buffer。
// 布尔运算要求恰好两个要素，buffer要求一个要素加非负距离
func (s *SpatialService) Operate(actor Actor, op string, layerID int64, featureIDs []int64, distance float64) (*GeoJSONFeature, error) {
	switch op {
	case OpUnion, OpDifference, OpIntersection:
		if len(featureIDs) != 2 {
			return nil, NewValidationError("%s requires exactly 2 feature ids, got %d", op, len(featureIDs))
		}
	case OpBuffer:
		if len(featureIDs) != 1 {
			return nil, NewValidationError("buffer requires exactly 1 feature id, got %d", len(featureIDs))
		}
		if distance < 0 {
			return nil, NewValidationError("buffer distance must be non-negative, got %f", distance)
		}
	default:
		return nil, NewValidationError("unknown spatial operation: %s", op)
	}

	var result *GeoJSONFeature
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var geometry json.RawMessage
		var props map[string]interface{}
		var err error

		if op == OpBuffer {
			geometry, err = geos.Buffer(tx, featureIDs[0], distance)
			props = bufferProvenance(featureIDs[0], distance)
		} else {
			geometry, err = geos.BooleanOp(tx, op, featureIDs[0], featureIDs[1])
			props = booleanProvenance(op, featureIDs)
		}
		if err != nil {
			return err
		}
		if geometry == nil {
			return NewOperationFailedError("%s produced no geometry, check that the input features exist and are active", op)
		}

		feature, err := s.persistResult(tx, actor, layerID, props, geometry, "Created by "+op)
		if err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, layerID)
		result, err = NewFeatureService(tx).Materialize(feature.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type splitCollection struct {
	Type       string            `json:"type"`
	Geometries []json.RawMessage `json:"geometries"`
}

// SplitFeature 线切割：原要素转为历史，切割出的各部分作为新要素入库
func (s *SpatialService) SplitFeature(actor Actor, featureID int64, line json.RawMessage) (*GeoJSONCollection, error) {
	if len(line) == 0 {
		return nil, NewValidationError("split requires a line geometry")
	}

	var out *GeoJSONCollection
	err := s.db.Transaction(func(tx *gorm.DB) error {
		fs := NewFeatureService(tx)
		original, err := fs.GetActive(featureID)
		if err != nil {
			return err
		}

		raw, err := s.split(tx, featureID, line)
		if err != nil {
			return err
		}
		if raw == nil {
			return NewOperationFailedError("split produced no geometry")
		}

		var coll splitCollection
		if err := json.Unmarshal(raw, &coll); err != nil {
			return NewOperationFailedError("split returned unreadable geometry: %v", err)
		}
		parts := coll.Geometries
		if coll.Type != "GeometryCollection" {
			parts = []json.RawMessage{raw}
		}
		if len(parts) < 2 {
			return NewOperationFailedError("split line does not cross feature %d", featureID)
		}

		props := splitInheritance(decodeProperties(original.Properties), featureID)
		out = NewGeoJSONCollection()
		for _, part := range parts {
			feature, err := s.persistResult(tx, actor, original.LayerID, props, part, "Created by split")
			if err != nil {
				return err
			}
			materialized, err := fs.Materialize(feature.ID)
			if err != nil {
				return err
			}
			out.Features = append(out.Features, materialized)
		}

		// 原要素墓碑化，保持历史可追溯
		if err := fs.UpdateStatus(featureID, models.StatusHistory); err != nil {
			return err
		}
		audit := NewAuditService(tx)
		if err := audit.LogFeatureDelete(actor, featureID, map[string]interface{}{
			"reason":     "split",
			"layer_id":   original.LayerID,
			"properties": decodeProperties(original.Properties),
		}); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, original.LayerID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Centroid 要素质心，不落库
func (s *SpatialService) Centroid(featureID int64) (json.RawMessage, error) {
	if _, err := NewFeatureService(s.db).GetActive(featureID); err != nil {
		return nil, err
	}
	point, err := geos.Centroid(s.db, featureID)
	if err != nil {
		return nil, err
	}
	if point == nil {
		return nil, NewOperationFailedError("centroid produced no geometry for feature %d", featureID)
	}
	return point, nil
}
