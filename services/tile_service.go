package services

import (
	"encoding/json"
	"fmt"

	"github.com/GrainArc/MapStudio/geos"
	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/pgmvt"
	"gorm.io/gorm"
)

// 缺省缩放范围
const (
	defaultMinZoom = 0
	defaultMaxZoom = 22
)

// TileService 矢量瓦片的开关、元数据与出图
type TileService struct {
	db *gorm.DB
}

func NewTileService(db *gorm.DB) *TileService {
	return &TileService{db: db}
}

// 缩放级别是否落在图层允许的区间内，nil按缺省值处理
func zoomInRange(z int, minZoom *int, maxZoom *int) bool {
	lo, hi := defaultMinZoom, defaultMaxZoom
	if minZoom != nil {
		lo = *minZoom
	}
	if maxZoom != nil {
		hi = *maxZoom
	}
	return z >= lo && z <= hi
}

// GetTile 返回瓦片字节流。noContent为true表示请求合法但无瓦片可出，
// 调用方应回204而不是404
func (s *TileService) GetTile(layerID int64, z int, x int, y int) ([]byte, bool, error) {
	var layer models.Layer
	if err := s.db.Where("id = ?", layerID).First(&layer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, NewNotFoundError("layer %d not found", layerID)
		}
		return nil, false, err
	}
	if !layer.VectorTileEnabled {
		return nil, false, NewNotFoundError("vector tiles not enabled for layer %d", layerID)
	}
	if !zoomInRange(z, layer.MinZoom, layer.MaxZoom) {
		return nil, true, nil
	}

	tile, err := pgmvt.MakeMVT(s.db, layerID, z, x, y)
	if err != nil {
		return nil, false, err
	}
	if tile == nil {
		return nil, true, nil
	}
	return tile, false, nil
}

// Metadata TileJSON 3.0.0元数据
func (s *TileService) Metadata(layerID int64, tileURLTemplate string) (map[string]interface{}, error) {
	var layer models.Layer
	if err := s.db.Where("id = ?", layerID).First(&layer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("layer %d not found", layerID)
		}
		return nil, err
	}
	if !layer.VectorTileEnabled {
		return nil, NewNotFoundError("vector tiles not enabled for layer %d", layerID)
	}

	minZoom, maxZoom := defaultMinZoom, defaultMaxZoom
	if layer.MinZoom != nil {
		minZoom = *layer.MinZoom
	}
	if layer.MaxZoom != nil {
		maxZoom = *layer.MaxZoom
	}

	meta := map[string]interface{}{
		"tilejson": "3.0.0",
		"name":     layer.Name,
		"tiles":    []string{tileURLTemplate},
		"minzoom":  minZoom,
		"maxzoom":  maxZoom,
		"format":   "pbf",
	}
	if len(layer.TileBounds) > 0 {
		var bounds []float64
		if err := json.Unmarshal(layer.TileBounds, &bounds); err == nil && len(bounds) == 4 {
			meta["bounds"] = bounds
		}
	}
	return meta, nil
}

// Enable 开启矢量瓦片，顺带计算图层范围并清掉陈旧缓存
func (s *TileService) Enable(layerID int64, minZoom *int, maxZoom *int) (*models.Layer, error) {
	lo, hi := defaultMinZoom, defaultMaxZoom
	if minZoom != nil {
		lo = *minZoom
	}
	if maxZoom != nil {
		hi = *maxZoom
	}
	if lo < 0 || hi > 24 || lo > hi {
		return nil, NewValidationError("invalid zoom range %d-%d", lo, hi)
	}

	var layer models.Layer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", layerID).First(&layer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return NewNotFoundError("layer %d not found", layerID)
			}
			return err
		}
		if layer.LayerType != models.LayerTypeVector {
			return NewValidationError("layer %d is %s, vector tiles require a vector layer", layerID, layer.LayerType)
		}

		updates := map[string]interface{}{
			"vector_tile_enabled": true,
			"min_zoom":            lo,
			"max_zoom":            hi,
		}
		if hasGeometryBackend(tx) {
			extent, err := geos.LayerExtent(tx, layerID)
			if err != nil {
				return err
			}
			if extent != nil {
				raw, err := json.Marshal(extent)
				if err != nil {
					return fmt.Errorf("marshal tile bounds: %w", err)
				}
				updates["tile_bounds"] = raw
			}
		}
		if err := tx.Model(&layer).Updates(updates).Error; err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, layerID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &layer, nil
}

// Disable 关闭矢量瓦片并丢弃缓存
func (s *TileService) Disable(layerID int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Layer{}).Where("id = ?", layerID).
			Update("vector_tile_enabled", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return NewNotFoundError("layer %d not found", layerID)
		}
		pgmvt.DelLayerMVT(tx, layerID)
		return nil
	})
}
