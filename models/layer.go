package models

import (
	"time"

	"gorm.io/datatypes"
)

// 图层类型
const (
	LayerTypeVector = "vector"
	LayerTypeWMS    = "wms"
	LayerTypeXYZ    = "xyz"
	LayerTypeGroup  = "group"
	LayerTypeRaster = "raster"
)

type Layer struct {
	ID                int64  `gorm:"primary_key;autoIncrement"`
	UserID            int64  `gorm:"index"`
	ParentID          *int64 `gorm:"index"`
	Name              string `gorm:"type:varchar(255)"`
	LayerType         string `gorm:"type:varchar(20);default:vector"`
	SourceURL         string `gorm:"type:varchar(1024)"`
	WMSLayers         string `gorm:"type:varchar(255)"`
	GeometryType      string `gorm:"type:varchar(20);default:any"`
	RasterType        string `gorm:"type:varchar(20)"`
	Visible           bool   `gorm:"default:true"`
	SortOrder         int64
	Style             datatypes.JSON `gorm:"type:jsonb"`
	Schema            datatypes.JSON `gorm:"type:jsonb"`
	VectorTileEnabled bool
	MinZoom           *int
	MaxZoom           *int
	TileBounds        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
