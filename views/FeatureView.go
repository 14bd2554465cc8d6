package views

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/pgmvt"
	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type featurePayload struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   json.RawMessage        `json:"geometry"`
}

// "minx,miny,maxx,maxy" 解析成四元组
func parseBBox(raw string) ([]float64, bool) {
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, false
	}
	bbox := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		bbox[i] = v
	}
	return bbox, true
}

// 要素新建。建要素、审计、初始版本、清瓦片缓存在同一事务内完成
func (uc *UserController) CreateFeature(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var payload featurePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	actor := actorFromContext(c)
	var result *services.GeoJSONFeature
	err := dbFrom(c).Transaction(func(tx *gorm.DB) error {
		fs := services.NewFeatureService(tx)
		feature, err := fs.Create(layerID, payload.Properties, payload.Geometry)
		if err != nil {
			return err
		}
		audit := services.NewAuditService(tx)
		if err := audit.LogFeatureCreate(actor, feature.ID, map[string]interface{}{
			"layer_id":   layerID,
			"properties": payload.Properties,
		}); err != nil {
			return err
		}
		vs := services.NewVersioningService(tx)
		if _, err := vs.CreateVersion(actor, feature.ID, "Initial version"); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, layerID)
		result, err = fs.Materialize(feature.ID)
		return err
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (uc *UserController) GetFeature(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	feature, err := services.NewFeatureService(dbFrom(c)).Materialize(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, feature)
}

// 要素更新。属性整体替换，几何可选，变更落审计并生成新版本
func (uc *UserController) UpdateFeature(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var payload featurePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	actor := actorFromContext(c)
	var result *services.GeoJSONFeature
	err := dbFrom(c).Transaction(func(tx *gorm.DB) error {
		fs := services.NewFeatureService(tx)
		feature, err := fs.GetActive(id)
		if err != nil {
			return err
		}
		oldProps := map[string]interface{}{}
		json.Unmarshal(feature.Properties, &oldProps)

		if payload.Properties != nil {
			if err := fs.UpdateProperties(id, payload.Properties); err != nil {
				return err
			}
		}
		if len(payload.Geometry) > 0 {
			if err := fs.UpdateGeometry(id, payload.Geometry); err != nil {
				return err
			}
		}

		audit := services.NewAuditService(tx)
		if err := audit.LogFeatureUpdate(actor, id, oldProps, payload.Properties); err != nil {
			return err
		}
		vs := services.NewVersioningService(tx)
		if _, err := vs.CreateVersion(actor, id, "Updated"); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, feature.LayerID)
		result, err = fs.Materialize(id)
		return err
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// 要素删除走软删，转历史态保住版本链
func (uc *UserController) DeleteFeature(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	actor := actorFromContext(c)
	err := dbFrom(c).Transaction(func(tx *gorm.DB) error {
		fs := services.NewFeatureService(tx)
		feature, err := fs.GetActive(id)
		if err != nil {
			return err
		}
		if err := fs.UpdateStatus(id, models.StatusHistory); err != nil {
			return err
		}
		props := map[string]interface{}{}
		json.Unmarshal(feature.Properties, &props)
		audit := services.NewAuditService(tx)
		if err := audit.LogFeatureDelete(actor, id, map[string]interface{}{
			"layer_id":   feature.LayerID,
			"properties": props,
		}); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, feature.LayerID)
		return nil
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "feature deleted"})
}

func (uc *UserController) ListFeatures(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	bbox, ok := parseBBox(c.Query("bbox"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bbox must be minx,miny,maxx,maxy"})
		return
	}
	collection, err := services.NewFeatureService(dbFrom(c)).ListActive(layerID, bbox)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

type spatialQueryPayload struct {
	Type     string          `json:"type"`
	Geometry json.RawMessage `json:"geometry"`
	Lng      float64         `json:"lng"`
	Lat      float64         `json:"lat"`
	Radius   float64         `json:"radius"`
}

// 空间查询：相交、半径、点选
func (uc *UserController) SpatialQuery(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var payload spatialQueryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	collection, err := services.NewFeatureService(dbFrom(c)).
		SpatialQuery(layerID, payload.Type, payload.Geometry, payload.Lng, payload.Lat, payload.Radius)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}
