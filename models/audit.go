package models

import (
	"time"

	"gorm.io/datatypes"
)

// 审计动作
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
	ActionExport = "export"
)

// AuditLog 审计日志，只追加不修改
type AuditLog struct {
	ID         int64          `gorm:"primary_key;autoIncrement"`
	UserID     int64          `gorm:"index"`
	Action     string         `gorm:"type:varchar(20);index"`
	EntityType string         `gorm:"type:varchar(20);index:idx_audit_entity"`
	EntityID   int64          `gorm:"index:idx_audit_entity"`
	OldValues  datatypes.JSON `gorm:"type:jsonb"`
	NewValues  datatypes.JSON `gorm:"type:jsonb"`
	IPAddress  string         `gorm:"type:varchar(45)"`
	UserAgent  string         `gorm:"type:varchar(255)"`
	CreatedAt  time.Time      `gorm:"index"`
}
