package models

import (
	"time"

	"gorm.io/datatypes"
)

// Version 要素历史快照，只追加。(feature_id, version_number)唯一，
// 并发分配撞号时由唯一索引兜底
type Version struct {
	ID                int64          `gorm:"primary_key;autoIncrement"`
	FeatureID         int64          `gorm:"uniqueIndex:uidx_feature_version"`
	UserID            int64          `gorm:"index"`
	VersionNumber     int64          `gorm:"uniqueIndex:uidx_feature_version"`
	Geometry          datatypes.JSON `gorm:"type:jsonb"`
	Properties        datatypes.JSON `gorm:"type:jsonb"`
	ChangeDescription string         `gorm:"type:varchar(255)"`
	CreatedAt         time.Time
}
