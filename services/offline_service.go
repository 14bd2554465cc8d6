package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/pgmvt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 离线包有效期（天）
const (
	minExpireDays     = 1
	maxExpireDays     = 30
	DefaultExpireDays = 7
)

// 有效期收敛到1~30天区间
func clampExpireDays(days int) int {
	if days < minExpireDays {
		return minExpireDays
	}
	if days > maxExpireDays {
		return maxExpireDays
	}
	return days
}

// OfflineService 离线包的下载、查询与变更回传
type OfflineService struct {
	db *gorm.DB
}

func NewOfflineService(db *gorm.DB) *OfflineService {
	return &OfflineService{db: db}
}

// OfflinePackage 下发给客户端的离线数据包
type OfflinePackage struct {
	Sync     models.OfflineSync     `json:"sync"`
	Features *GeoJSONCollection     `json:"features"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Sync 按full/bbox/selected圈选要素生成离线包。
// 同一(user, layer)重复同步直接覆盖旧记录
func (s *OfflineService) Sync(actor Actor, layerID int64, syncType string, bbox []float64, featureIDs []int64, expireDays int) (*OfflinePackage, error) {
	var layer models.Layer
	if err := s.db.Where("id = ?", layerID).First(&layer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("layer %d not found", layerID)
		}
		return nil, err
	}

	collection, err := NewFeatureService(s.db).SelectForSync(layerID, syncType, bbox, featureIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	days := clampExpireDays(expireDays)
	metadata := map[string]interface{}{
		"layer_name":    layer.Name,
		"geometry_type": layer.GeometryType,
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal offline metadata: %w", err)
	}

	sync := models.OfflineSync{
		UserID:       actor.UserID,
		LayerID:      layerID,
		SyncType:     syncType,
		SyncedAt:     now,
		ExpiresAt:    now.AddDate(0, 0, days),
		FeatureCount: int64(len(collection.Features)),
		Metadata:     metaJSON,
	}
	if bbox != nil {
		raw, err := json.Marshal(bbox)
		if err != nil {
			return nil, fmt.Errorf("marshal bbox: %w", err)
		}
		sync.BBox = raw
	}
	if featureIDs != nil {
		raw, err := json.Marshal(featureIDs)
		if err != nil {
			return nil, fmt.Errorf("marshal feature ids: %w", err)
		}
		sync.FeatureIDs = raw
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "layer_id"}},
		UpdateAll: true,
	}).Create(&sync).Error
	if err != nil {
		return nil, err
	}

	return &OfflinePackage{Sync: sync, Features: collection, Metadata: metadata}, nil
}

// Show 读取同步记录，过期的按Expired报出
func (s *OfflineService) Show(userID int64, layerID int64) (*models.OfflineSync, error) {
	var sync models.OfflineSync
	err := s.db.Where("user_id = ? AND layer_id = ?", userID, layerID).First(&sync).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("no offline sync for user %d on layer %d", userID, layerID)
		}
		return nil, err
	}
	if !sync.ExpiresAt.After(time.Now()) {
		return nil, NewExpiredError("offline sync for layer %d expired at %s", layerID, sync.ExpiresAt.Format(time.RFC3339))
	}
	return &sync, nil
}

// Index 用户的全部未过期同步记录
func (s *OfflineService) Index(userID int64) ([]models.OfflineSync, error) {
	var syncs []models.OfflineSync
	err := s.db.Where("user_id = ? AND expires_at > ?", userID, time.Now()).
		Order("synced_at DESC").Find(&syncs).Error
	if err != nil {
		return nil, err
	}
	return syncs, nil
}

func (s *OfflineService) Delete(userID int64, layerID int64) error {
	result := s.db.Where("user_id = ? AND layer_id = ?", userID, layerID).
		Delete(&models.OfflineSync{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("no offline sync for user %d on layer %d", userID, layerID)
	}
	return nil
}

// 回传变更的动作类型
const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

type OfflineChangeData struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   json.RawMessage        `json:"geometry"`
}

type OfflineChange struct {
	Action    string            `json:"action"`
	LayerID   int64             `json:"layer_id"`
	FeatureID int64             `json:"feature_id"`
	OfflineID string            `json:"offline_id"`
	Data      OfflineChangeData `json:"data"`
}

type ChangeResult struct {
	OfflineID string `json:"offline_id,omitempty"`
	Action    string `json:"action"`
	FeatureID int64  `json:"feature_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SyncChanges 批量应用离线期间的变更。采用last-write-wins：
// 不做在线版本比对，后到的写直接覆盖，冲突细节留在版本链里可追
func (s *OfflineService) SyncChanges(actor Actor, changes []OfflineChange) []ChangeResult {
	results := make([]ChangeResult, 0, len(changes))
	for _, change := range changes {
		// 单条变更各自成事务，一条失败不拖垮整批
		result := ChangeResult{OfflineID: change.OfflineID, Action: change.Action, FeatureID: change.FeatureID}
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.applyChange(tx, actor, change, &result)
		})
		if err != nil {
			result.Status = "error"
			result.Error = err.Error()
		} else {
			result.Status = "ok"
		}
		results = append(results, result)
	}
	return results
}

func (s *OfflineService) applyChange(tx *gorm.DB, actor Actor, change OfflineChange, result *ChangeResult) error {
	fs := NewFeatureService(tx)
	audit := NewAuditService(tx)
	vs := NewVersioningService(tx)

	switch change.Action {
	case ChangeCreate:
		if change.LayerID == 0 {
			return NewValidationError("create change requires layer_id")
		}
		feature, err := fs.Create(change.LayerID, change.Data.Properties, change.Data.Geometry)
		if err != nil {
			return err
		}
		result.FeatureID = feature.ID
		if err := audit.LogFeatureCreate(actor, feature.ID, map[string]interface{}{
			"layer_id":   change.LayerID,
			"properties": change.Data.Properties,
			"offline_id": change.OfflineID,
		}); err != nil {
			return err
		}
		if _, err := vs.CreateVersion(actor, feature.ID, "Created from offline sync"); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, change.LayerID)
		return nil

	case ChangeUpdate:
		feature, err := fs.GetActive(change.FeatureID)
		if err != nil {
			return err
		}
		oldProps := decodeProperties(feature.Properties)
		if change.Data.Properties != nil {
			if err := fs.UpdateProperties(change.FeatureID, change.Data.Properties); err != nil {
				return err
			}
		}
		if len(change.Data.Geometry) > 0 {
			if err := fs.UpdateGeometry(change.FeatureID, change.Data.Geometry); err != nil {
				return err
			}
		}
		if err := audit.LogFeatureUpdate(actor, change.FeatureID, oldProps, change.Data.Properties); err != nil {
			return err
		}
		if _, err := vs.CreateVersion(actor, change.FeatureID, "Updated from offline sync"); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, feature.LayerID)
		return nil

	case ChangeDelete:
		feature, err := fs.GetActive(change.FeatureID)
		if err != nil {
			return err
		}
		if err := fs.UpdateStatus(change.FeatureID, models.StatusHistory); err != nil {
			return err
		}
		if err := audit.LogFeatureDelete(actor, change.FeatureID, map[string]interface{}{
			"layer_id":   feature.LayerID,
			"properties": decodeProperties(feature.Properties),
			"offline_id": change.OfflineID,
		}); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, feature.LayerID)
		return nil

	default:
		return NewValidationError("unknown change action: %s", change.Action)
	}
}
