package models

import (
	"time"

	"gorm.io/datatypes"
)

// 离线同步方式
const (
	SyncTypeFull     = "full"
	SyncTypeBBox     = "bbox"
	SyncTypeSelected = "selected"
)

// OfflineSync 离线同步记录，(user_id, layer_id)唯一，重复同步走覆盖
type OfflineSync struct {
	ID           int64          `gorm:"primary_key;autoIncrement"`
	UserID       int64          `gorm:"uniqueIndex:uidx_offline_user_layer"`
	LayerID      int64          `gorm:"uniqueIndex:uidx_offline_user_layer"`
	SyncType     string         `gorm:"type:varchar(20)"`
	BBox         datatypes.JSON `gorm:"type:jsonb"`
	FeatureIDs   datatypes.JSON `gorm:"type:jsonb"`
	SyncedAt     time.Time
	ExpiresAt    time.Time `gorm:"index"`
	FeatureCount int64
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
}
