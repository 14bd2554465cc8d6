package models

import (
	"time"

	"gorm.io/datatypes"
)

// 要素状态机：active为可编辑状态，history为墓碑状态，永不物理删除
const (
	StatusActive  = "active"
	StatusHistory = "history"
)

// Feature 矢量要素，geom列由原生SQL维护（见core.go），结构体不携带几何
type Feature struct {
	ID         int64          `gorm:"primary_key;autoIncrement"`
	LayerID    int64          `gorm:"index"`
	Properties datatypes.JSON `gorm:"type:jsonb"`
	Status     string         `gorm:"type:varchar(20);default:active;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
