package models

import (
	"time"

	"gorm.io/datatypes"
)

// Raster 栅格数据记录，切片状态由untiled到tiled单向流转
type Raster struct {
	ID                  int64          `gorm:"primary_key;autoIncrement"`
	LayerID             int64          `gorm:"index"`
	Name                string         `gorm:"type:varchar(255)"`
	FilePath            string         `gorm:"type:varchar(1024)"`
	FileType            string         `gorm:"type:varchar(20)"`
	FileSize            int64
	Bounds              datatypes.JSON `gorm:"type:jsonb"`
	Width               int
	Height              int
	Bands               int
	ColorInterpretation string         `gorm:"type:varchar(50)"`
	Metadata            datatypes.JSON `gorm:"type:jsonb"`
	IsTiled             bool
	TilePath            string `gorm:"type:varchar(1024)"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
