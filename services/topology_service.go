package services

import (
	"encoding/json"
	"fmt"

	"github.com/GrainArc/MapStudio/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// 拓扑检查类型
const (
	TopoSelfIntersection = "self_intersection"
	TopoOverlap          = "overlap"
	TopoDuplicate        = "duplicate"
)

// 每类扫描的行数上限，防止大图层上的成对比较失控
const topoScanLimit = 100

type TopologyError struct {
	Type       string          `json:"type"`
	FeatureID  int64           `json:"feature_id,omitempty"`
	FeatureIDs []int64         `json:"feature_ids,omitempty"`
	Message    string          `json:"message"`
	Location   json.RawMessage `json:"location,omitempty"`
}

type TopologyReport struct {
	LayerID    int64           `json:"layer_id"`
	ErrorCount int             `json:"error_count"`
	Errors     []TopologyError `json:"errors"`
}

// TopologyService 图层拓扑诊断，纯读路径，不动任何数据
type TopologyService struct {
	db *gorm.DB
}

func NewTopologyService(db *gorm.DB) *TopologyService {
	return &TopologyService{db: db}
}

// 报告固定按 invalid -> overlap -> duplicate 排列
func assembleReport(layerID int64, invalid []TopologyError, overlaps []TopologyError, duplicates []TopologyError) *TopologyReport {
	errs := make([]TopologyError, 0, len(invalid)+len(overlaps)+len(duplicates))
	errs = append(errs, invalid...)
	errs = append(errs, overlaps...)
	errs = append(errs, duplicates...)
	return &TopologyReport{
		LayerID:    layerID,
		ErrorCount: len(errs),
		Errors:     errs,
	}
}

func toLocation(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	return json.RawMessage(raw)
}

func (s *TopologyService) scanInvalid(layerID int64) ([]TopologyError, error) {
	var rows []struct {
		ID       int64  `gorm:"column:id"`
		Location string `gorm:"column:location"`
	}
	sql := `
		SELECT id, ST_AsGeoJSON(ST_Centroid(geom)) AS location
		FROM feature
		WHERE layer_id = ? AND status = ?
		  AND NOT ST_IsValid(geom)
		LIMIT ?`
	if err := s.db.Raw(sql, layerID, models.StatusActive, topoScanLimit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	var errs []TopologyError
	for _, row := range rows {
		errs = append(errs, TopologyError{
			Type:      TopoSelfIntersection,
			FeatureID: row.ID,
			Message:   fmt.Sprintf("Feature %d has invalid geometry (self-intersection)", row.ID),
			Location:  toLocation(row.Location),
		})
	}
	return errs, nil
}

type pairRow struct {
	IDA      int64  `gorm:"column:id_a"`
	IDB      int64  `gorm:"column:id_b"`
	Location string `gorm:"column:location"`
}

// 成对枚举统一a.id < b.id，保证(a,b)与(b,a)只报一次
func (s *TopologyService) scanOverlaps(layerID int64) ([]TopologyError, error) {
	var rows []pairRow
	sql := `
		SELECT a.id AS id_a, b.id AS id_b,
		       ST_AsGeoJSON(ST_Centroid(ST_Intersection(a.geom, b.geom))) AS location
		FROM feature a
		JOIN feature b ON a.id < b.id
		WHERE a.layer_id = ? AND b.layer_id = ?
		  AND a.status = ? AND b.status = ?
		  AND ST_GeometryType(a.geom) LIKE '%Polygon%'
		  AND ST_GeometryType(b.geom) LIKE '%Polygon%'
		  AND ST_Overlaps(a.geom, b.geom)
		LIMIT ?`
	err := s.db.Raw(sql, layerID, layerID, models.StatusActive, models.StatusActive, topoScanLimit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var errs []TopologyError
	for _, row := range rows {
		errs = append(errs, TopologyError{
			Type:       TopoOverlap,
			FeatureIDs: []int64{row.IDA, row.IDB},
			Message:    fmt.Sprintf("Features %d and %d overlap", row.IDA, row.IDB),
			Location:   toLocation(row.Location),
		})
	}
	return errs, nil
}

func (s *TopologyService) scanDuplicates(layerID int64) ([]TopologyError, error) {
	var rows []pairRow
	sql := `
		SELECT a.id AS id_a, b.id AS id_b,
		       ST_AsGeoJSON(ST_Centroid(a.geom)) AS location
		FROM feature a
		JOIN feature b ON a.id < b.id
		WHERE a.layer_id = ? AND b.layer_id = ?
		  AND a.status = ? AND b.status = ?
		  AND ST_Equals(a.geom, b.geom)
		LIMIT ?`
	err := s.db.Raw(sql, layerID, layerID, models.StatusActive, models.StatusActive, topoScanLimit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var errs []TopologyError
	for _, row := range rows {
		errs = append(errs, TopologyError{
			Type:       TopoDuplicate,
			FeatureIDs: []int64{row.IDA, row.IDB},
			Message:    fmt.Sprintf("Features %d and %d have identical geometry", row.IDA, row.IDB),
			Location:   toLocation(row.Location),
		})
	}
	return errs, nil
}

// ValidateLayer 三类检查互相独立，并发执行，各写各的切片
func (s *TopologyService) ValidateLayer(layerID int64) (*TopologyReport, error) {
	var layer models.Layer
	if err := s.db.Where("id = ?", layerID).First(&layer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("layer %d not found", layerID)
		}
		return nil, err
	}

	var invalid, overlaps, duplicates []TopologyError
	var g errgroup.Group

	g.Go(func() error {
		var err error
		invalid, err = s.scanInvalid(layerID)
		return err
	})
	g.Go(func() error {
		var err error
		overlaps, err = s.scanOverlaps(layerID)
		return err
	})
	g.Go(func() error {
		var err error
		duplicates, err = s.scanDuplicates(layerID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assembleReport(layerID, invalid, overlaps, duplicates), nil
}
