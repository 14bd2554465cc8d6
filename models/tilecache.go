package models

// LayerTileCache 矢量瓦片缓存，按(layer_id, z, x, y)唯一
type LayerTileCache struct {
	LayerID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Z        int    `gorm:"primaryKey;autoIncrement:false"`
	X        int    `gorm:"primaryKey;autoIncrement:false"`
	Y        int    `gorm:"primaryKey;autoIncrement:false"`
	TileData []byte `gorm:"type:bytea"`
}
