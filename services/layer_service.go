package services

import (
	"encoding/json"

	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/pgmvt"
	"gorm.io/gorm"
)

// LayerService 图层树的增删改与排序
type LayerService struct {
	db *gorm.DB
}

func NewLayerService(db *gorm.DB) *LayerService {
	return &LayerService{db: db}
}

type LayerInput struct {
	Name         string                 `json:"name"`
	LayerType    string                 `json:"layer_type"`
	ParentID     *int64                 `json:"parent_id"`
	SourceURL    string                 `json:"source_url"`
	WMSLayers    string                 `json:"wms_layers"`
	GeometryType string                 `json:"geometry_type"`
	Visible      *bool                  `json:"visible"`
	Style        map[string]interface{} `json:"style"`
	Schema       map[string]interface{} `json:"schema"`
}

func validLayerType(t string) bool {
	switch t {
	case models.LayerTypeVector, models.LayerTypeWMS, models.LayerTypeXYZ,
		models.LayerTypeGroup, models.LayerTypeRaster:
		return true
	}
	return false
}

func (s *LayerService) Create(actor Actor, input LayerInput) (*models.Layer, error) {
	if input.Name == "" {
		return nil, NewValidationError("layer name is required")
	}
	layerType := input.LayerType
	if layerType == "" {
		layerType = models.LayerTypeVector
	}
	if !validLayerType(layerType) {
		return nil, NewValidationError("unknown layer type: %s", input.LayerType)
	}
	if input.ParentID != nil {
		var parent models.Layer
		if err := s.db.Where("id = ?", *input.ParentID).First(&parent).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, NewValidationError("parent layer %d not found", *input.ParentID)
			}
			return nil, err
		}
		if parent.LayerType != models.LayerTypeGroup {
			return nil, NewValidationError("parent layer %d is not a group", *input.ParentID)
		}
	}

	layer := models.Layer{
		UserID:       actor.UserID,
		ParentID:     input.ParentID,
		Name:         input.Name,
		LayerType:    layerType,
		SourceURL:    input.SourceURL,
		WMSLayers:    input.WMSLayers,
		GeometryType: input.GeometryType,
		Visible:      true,
	}
	if input.Visible != nil {
		layer.Visible = *input.Visible
	}
	if layer.GeometryType == "" {
		layer.GeometryType = "any"
	}
	if input.Style != nil {
		raw, err := json.Marshal(input.Style)
		if err != nil {
			return nil, NewValidationError("invalid style: %v", err)
		}
		layer.Style = raw
	}
	if input.Schema != nil {
		raw, err := json.Marshal(input.Schema)
		if err != nil {
			return nil, NewValidationError("invalid schema: %v", err)
		}
		layer.Schema = raw
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 新图层排在同级末尾
		var maxOrder int64
		tx.Model(&models.Layer{}).Select("COALESCE(MAX(sort_order), 0)").
			Where("user_id = ?", actor.UserID).Scan(&maxOrder)
		layer.SortOrder = maxOrder + 1

		if err := tx.Create(&layer).Error; err != nil {
			return err
		}
		return NewAuditService(tx).Log(actor, models.ActionCreate, "layer", layer.ID, nil, map[string]interface{}{
			"name":       layer.Name,
			"layer_type": layer.LayerType,
		})
	})
	if err != nil {
		return nil, err
	}
	return &layer, nil
}

func (s *LayerService) Get(id int64) (*models.Layer, error) {
	var layer models.Layer
	if err := s.db.Where("id = ?", id).First(&layer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("layer %d not found", id)
		}
		return nil, err
	}
	return &layer, nil
}

// List 按排序序返回用户的图层
func (s *LayerService) List(userID int64) ([]models.Layer, error) {
	var layers []models.Layer
	err := s.db.Where("user_id = ?", userID).
		Order("sort_order ASC, id ASC").Find(&layers).Error
	if err != nil {
		return nil, err
	}
	return layers, nil
}

func (s *LayerService) Update(actor Actor, id int64, input LayerInput) (*models.Layer, error) {
	layer, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.SourceURL != "" {
		updates["source_url"] = input.SourceURL
	}
	if input.WMSLayers != "" {
		updates["wms_layers"] = input.WMSLayers
	}
	if input.Visible != nil {
		updates["visible"] = *input.Visible
	}
	if input.Style != nil {
		raw, err := json.Marshal(input.Style)
		if err != nil {
			return nil, NewValidationError("invalid style: %v", err)
		}
		updates["style"] = raw
	}
	if input.Schema != nil {
		raw, err := json.Marshal(input.Schema)
		if err != nil {
			return nil, NewValidationError("invalid schema: %v", err)
		}
		updates["schema"] = raw
	}
	if len(updates) == 0 {
		return layer, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		old := map[string]interface{}{"name": layer.Name, "visible": layer.Visible}
		if err := tx.Model(layer).Updates(updates).Error; err != nil {
			return err
		}
		return NewAuditService(tx).Log(actor, models.ActionUpdate, "layer", layer.ID, old, updates)
	})
	if err != nil {
		return nil, err
	}
	return layer, nil
}

// Delete 连带删除要素、版本、瓦片缓存
func (s *LayerService) Delete(actor Actor, id int64) error {
	layer, err := s.Get(id)
	if err != nil {
		return err
	}
	if layer.LayerType == models.LayerTypeGroup {
		var children int64
		if err := s.db.Model(&models.Layer{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return NewValidationError("group layer %d still has %d children", id, children)
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var featureIDs []int64
		if err := tx.Model(&models.Feature{}).Where("layer_id = ?", id).Pluck("id", &featureIDs).Error; err != nil {
			return err
		}
		if len(featureIDs) > 0 {
			if err := tx.Where("feature_id IN ?", featureIDs).Delete(&models.Version{}).Error; err != nil {
				return err
			}
			if err := tx.Where("layer_id = ?", id).Delete(&models.Feature{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", id).Delete(&models.Layer{}).Error; err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, id)
		return NewAuditService(tx).Log(actor, models.ActionDelete, "layer", id, map[string]interface{}{
			"name":          layer.Name,
			"feature_count": len(featureIDs),
		}, nil)
	})
}

// Reorder 按提交的id顺序重排图层
func (s *LayerService) Reorder(actor Actor, userID int64, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return NewValidationError("reorder requires at least one layer id")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			result := tx.Model(&models.Layer{}).
				Where("id = ? AND user_id = ?", id, userID).
				Update("sort_order", int64(i+1))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return NewNotFoundError("layer %d not found for user %d", id, userID)
			}
		}
		return nil
	})
}
