package pgmvt

import (
	"log"

	"github.com/GrainArc/MapStudio/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 瓦片编码参数：4096单位格网，256单位裁剪缓冲
const (
	tileExtent = 4096
	tileBuffer = 256
)

type MVTTile struct {
	MVT []byte
}

// MakeMVT 生成图层矢量瓦片，优先走缓存表。
// 图层无落入范围的要素时返回nil
func MakeMVT(db *gorm.DB, layerID int64, z int, x int, y int) ([]byte, error) {
	var cache models.LayerTileCache
	result := db.Where("layer_id = ? AND z = ? AND x = ? AND y = ?", layerID, z, x, y).First(&cache)
	if result.Error == nil {
		return cache.TileData, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	b := TileToBounds(z, x, y)

	sql := `
		SELECT ST_AsMVT(q, 'layer', ?, 'geom') AS mvt
		FROM (
			SELECT id, layer_id, properties,
			       ST_AsMVTGeom(
			           ST_Transform(geom, 3857),
			           ST_MakeEnvelope(?, ?, ?, ?, 3857),
			           ?, ?, TRUE
			       ) AS geom
			FROM feature
			WHERE layer_id = ? AND status = ?
			  AND geom && ST_Transform(ST_MakeEnvelope(?, ?, ?, ?, 3857), 4326)
		) q`

	var tile MVTTile
	err := db.Raw(sql,
		tileExtent,
		b.MinX, b.MinY, b.MaxX, b.MaxY,
		tileExtent, tileBuffer,
		layerID, models.StatusActive,
		b.MinX, b.MinY, b.MaxX, b.MaxY,
	).Scan(&tile).Error
	if err != nil {
		return nil, err
	}
	if len(tile.MVT) == 0 {
		return nil, nil
	}

	entry := models.LayerTileCache{LayerID: layerID, Z: z, X: x, Y: y, TileData: tile.MVT}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		log.Printf("tile cache write failed: %v", err)
	}
	return tile.MVT, nil
}

// DelLayerMVT 要素变更后清空该图层的瓦片缓存
func DelLayerMVT(db *gorm.DB, layerID int64) {
	if err := db.Where("layer_id = ?", layerID).Delete(&models.LayerTileCache{}).Error; err != nil {
		log.Printf("error deleting tile cache for layer %d: %v", layerID, err)
	}
}
