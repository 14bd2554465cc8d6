package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/GrainArc/MapStudio/geos"
	"github.com/GrainArc/MapStudio/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VersioningService 版本账本。版本号每要素从1起严格递增无空洞，
// 记录只追加，从不更新或删除
type VersioningService struct {
	db *gorm.DB
}

func NewVersioningService(db *gorm.DB) *VersioningService {
	return &VersioningService{db: db}
}

// geom列由原生SQL维护，只有postgres后端存在
func hasGeometryBackend(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// appendVersion 落盘一条版本记录。两个写入者撞号时
// 唯一索引报错翻译为Conflict，由调用方决定重试
func appendVersion(tx *gorm.DB, v *models.Version) error {
	if err := tx.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return NewConflictError(fmt.Sprintf("version number race on feature %d", v.FeatureID), err)
		}
		return err
	}
	return nil
}

// CreateVersion 为要素当前状态追加一条快照。
// 同一要素的分配必须串行：事务内先锁要素行再取max+1，
// 两个写入者仍然撞号时由唯一索引拦下并上报Conflict
func (s *VersioningService) CreateVersion(actor Actor, featureID int64, description string) (*models.Version, error) {
	var version *models.Version

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var feature models.Feature
		query := tx.Where("id = ?", featureID)
		if hasGeometryBackend(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&feature).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return NewNotFoundError("feature %d not found", featureID)
			}
			return err
		}

		var maxNumber int64
		err := tx.Model(&models.Version{}).
			Where("feature_id = ?", featureID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&maxNumber).Error
		if err != nil {
			return err
		}

		var geomSnapshot json.RawMessage
		if hasGeometryBackend(tx) {
			geomSnapshot, err = geos.FeatureGeometry(tx, featureID)
			if err != nil {
				return err
			}
		}

		v := models.Version{
			FeatureID:         featureID,
			UserID:            actor.UserID,
			VersionNumber:     maxNumber + 1,
			Geometry:          []byte(geomSnapshot),
			Properties:        feature.Properties,
			ChangeDescription: description,
		}
		if err := appendVersion(tx, &v); err != nil {
			return err
		}
		version = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// RestoreVersion 回滚到历史版本。三步走：先快照当前状态，再覆盖要素，
// 最后快照回滚结果。全程一个事务，任一步失败整体回退
func (s *VersioningService) RestoreVersion(actor Actor, versionID int64) (*models.Feature, error) {
	var restored *models.Feature

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var version models.Version
		if err := tx.Where("id = ?", versionID).First(&version).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return NewNotFoundError("version %d not found", versionID)
			}
			return err
		}

		var feature models.Feature
		if err := tx.Where("id = ?", version.FeatureID).First(&feature).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return NewNotFoundError("feature %d not found", version.FeatureID)
			}
			return err
		}

		txService := NewVersioningService(tx)
		if _, err := txService.CreateVersion(actor, feature.ID, fmt.Sprintf("Before restore to version %d", version.VersionNumber)); err != nil {
			return err
		}

		if err := tx.Model(&models.Feature{}).Where("id = ?", feature.ID).Update("properties", version.Properties).Error; err != nil {
			return err
		}
		if len(version.Geometry) > 0 && hasGeometryBackend(tx) {
			if err := geos.UpdateFeatureGeometry(tx, feature.ID, json.RawMessage(version.Geometry)); err != nil {
				return err
			}
		}

		if _, err := txService.CreateVersion(actor, feature.ID, fmt.Sprintf("Restored to version %d", version.VersionNumber)); err != nil {
			return err
		}

		if err := tx.Where("id = ?", feature.ID).First(&feature).Error; err != nil {
			return err
		}
		restored = &feature
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

func (s *VersioningService) ListVersions(featureID int64) ([]models.Version, error) {
	var versions []models.Version
	err := s.db.Where("feature_id = ?", featureID).
		Order("version_number DESC").
		Find(&versions).Error
	return versions, err
}

func (s *VersioningService) GetVersion(id int64) (*models.Version, error) {
	var version models.Version
	result := s.db.Where("id = ?", id).First(&version)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("version %d not found", id)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &version, nil
}

// GetFeatureAtVersion 按版本号取某要素的历史形态
func (s *VersioningService) GetFeatureAtVersion(featureID int64, versionNumber int64) (*models.Version, error) {
	var version models.Version
	result := s.db.Where("feature_id = ? AND version_number = ?", featureID, versionNumber).First(&version)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("feature %d has no version %d", featureID, versionNumber)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &version, nil
}

type PropChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

type VersionComparison struct {
	Version1          int64                 `json:"version_1"`
	Version2          int64                 `json:"version_2"`
	GeometryChanged   bool                  `json:"geometry_changed"`
	PropertiesChanged bool                  `json:"properties_changed"`
	PropertiesDiff    map[string]PropChange `json:"properties_diff"`
}

// 快照比较先做JSON规范化，避免键序或空白差异造成假阳性
func snapshotEqual(a []byte, b []byte) bool {
	var va, vb interface{}
	if len(a) > 0 {
		json.Unmarshal(a, &va)
	}
	if len(b) > 0 {
		json.Unmarshal(b, &vb)
	}
	return reflect.DeepEqual(va, vb)
}

// diffProperties 对两份属性快照键集合的并集逐键比较，
// 不同的键以{old, new}形式上报
func diffProperties(props1 map[string]interface{}, props2 map[string]interface{}) map[string]PropChange {
	diff := map[string]PropChange{}
	allKeys := map[string]bool{}
	for key := range props1 {
		allKeys[key] = true
	}
	for key := range props2 {
		allKeys[key] = true
	}

	for key := range allKeys {
		val1 := props1[key]
		val2 := props2[key]
		if !reflect.DeepEqual(val1, val2) {
			diff[key] = PropChange{Old: val1, New: val2}
		}
	}
	return diff
}

// CompareVersions 几何比较是快照级别的不等判断，不做语义等价分析
func (s *VersioningService) CompareVersions(versionID1 int64, versionID2 int64) (*VersionComparison, error) {
	v1, err := s.GetVersion(versionID1)
	if err != nil {
		return nil, err
	}
	v2, err := s.GetVersion(versionID2)
	if err != nil {
		return nil, err
	}

	diff := diffProperties(decodeProperties(v1.Properties), decodeProperties(v2.Properties))

	return &VersionComparison{
		Version1:          v1.VersionNumber,
		Version2:          v2.VersionNumber,
		GeometryChanged:   !snapshotEqual(v1.Geometry, v2.Geometry),
		PropertiesChanged: len(diff) > 0,
		PropertiesDiff:    diff,
	}, nil
}
