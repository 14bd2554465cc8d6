package services

import (
	"encoding/json"
	"time"

	"github.com/GrainArc/MapStudio/models"
	"gorm.io/gorm"
)

// AuditService 审计日志服务。所有写入只追加，从不更新或删除
type AuditService struct {
	db *gorm.DB
}

// NewAuditService 可传入事务句柄，使审计写入与业务写入同事务提交
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func toJSON(values map[string]interface{}) []byte {
	if values == nil {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return data
}

func (s *AuditService) Log(actor Actor, action string, entityType string, entityID int64, oldValues map[string]interface{}, newValues map[string]interface{}) error {
	entry := models.AuditLog{
		UserID:     actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  toJSON(oldValues),
		NewValues:  toJSON(newValues),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	return s.db.Create(&entry).Error
}

func (s *AuditService) LogFeatureCreate(actor Actor, featureID int64, data map[string]interface{}) error {
	return s.Log(actor, models.ActionCreate, "feature", featureID, nil, data)
}

func (s *AuditService) LogFeatureUpdate(actor Actor, featureID int64, oldData map[string]interface{}, newData map[string]interface{}) error {
	return s.Log(actor, models.ActionUpdate, "feature", featureID, oldData, newData)
}

func (s *AuditService) LogFeatureDelete(actor Actor, featureID int64, data map[string]interface{}) error {
	return s.Log(actor, models.ActionDelete, "feature", featureID, data, nil)
}

func (s *AuditService) LogImport(actor Actor, format string, layerID int64, count int) error {
	return s.Log(actor, models.ActionImport, "layer", layerID, nil, map[string]interface{}{"format": format, "count": count})
}

func (s *AuditService) LogExport(actor Actor, format string, layerID int64) error {
	return s.Log(actor, models.ActionExport, "layer", layerID, nil, map[string]interface{}{"format": format})
}

// AuditFilter 查询过滤条件，零值字段不参与过滤
type AuditFilter struct {
	EntityType string
	EntityID   int64
	Action     string
	UserID     int64
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// 未给时间范围时默认只看最近30天，策略只在此处生效一次
const defaultAuditWindowDays = 30

func resolveAuditWindow(from *time.Time, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	if from == nil && to == nil {
		start := now.AddDate(0, 0, -defaultAuditWindowDays)
		return &start, nil
	}
	return from, to
}

type AuditPage struct {
	Data     []models.AuditLog `json:"data"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

func (s *AuditService) List(filter AuditFilter) (*AuditPage, error) {
	query := s.db.Model(&models.AuditLog{})

	if filter.EntityType != "" && filter.EntityID != 0 {
		query = query.Where("entity_type = ? AND entity_id = ?", filter.EntityType, filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	from, to := resolveAuditWindow(filter.From, filter.To, time.Now())
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	return &AuditPage{Data: logs, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *AuditService) Get(id int64) (*models.AuditLog, error) {
	var entry models.AuditLog
	result := s.db.Where("id = ?", id).First(&entry)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("audit log %d not found", id)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

// ForEntity 单个实体的全部审计条目，不套默认时间窗
func (s *AuditService) ForEntity(entityType string, entityID int64, page int, pageSize int) (*AuditPage, error) {
	query := s.db.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return &AuditPage{Data: logs, Total: total, Page: page, PageSize: pageSize}, nil
}

type AuditActionCounts struct {
	Total   int64 `json:"total"`
	Creates int64 `json:"creates"`
	Updates int64 `json:"updates"`
	Deletes int64 `json:"deletes"`
}

type AuditEntityCount struct {
	EntityType string `json:"entity_type"`
	Count      int64  `json:"count"`
}

type AuditSummary struct {
	Today    AuditActionCounts  `json:"today"`
	Week     AuditActionCounts  `json:"week"`
	Month    AuditActionCounts  `json:"month"`
	ByEntity []AuditEntityCount `json:"by_entity"`
}

func (s *AuditService) countsSince(since time.Time) (AuditActionCounts, error) {
	var counts AuditActionCounts
	base := s.db.Model(&models.AuditLog{}).Where("created_at >= ?", since)
	if err := base.Session(&gorm.Session{}).Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	for action, dest := range map[string]*int64{
		models.ActionCreate: &counts.Creates,
		models.ActionUpdate: &counts.Updates,
		models.ActionDelete: &counts.Deletes,
	} {
		if err := base.Session(&gorm.Session{}).Where("action = ?", action).Count(dest).Error; err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func (s *AuditService) Summary() (*AuditSummary, error) {
	now := time.Now()
	var summary AuditSummary
	var err error

	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	if summary.Today, err = s.countsSince(today); err != nil {
		return nil, err
	}
	if summary.Week, err = s.countsSince(today.AddDate(0, 0, -7)); err != nil {
		return nil, err
	}
	if summary.Month, err = s.countsSince(today.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}

	err = s.db.Model(&models.AuditLog{}).
		Select("entity_type, count(*) as count").
		Group("entity_type").
		Order("count DESC").
		Limit(10).
		Scan(&summary.ByEntity).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
