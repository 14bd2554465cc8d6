package views

import (
	"encoding/json"
	"net/http"

	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
)

type spatialOpPayload struct {
	Operation  string  `json:"operation"`
	LayerID    int64   `json:"layer_id"`
	FeatureIDs []int64 `json:"feature_ids"`
	Distance   float64 `json:"distance"`
}

// 布尔运算与缓冲，产物作为新要素返回
func (uc *UserController) SpatialOperation(c *gin.Context) {
	var payload spatialOpPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	result, err := services.NewSpatialService(dbFrom(c)).
		Operate(actorFromContext(c), payload.Operation, payload.LayerID, payload.FeatureIDs, payload.Distance)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type splitPayload struct {
	Line json.RawMessage `json:"line"`
}

// 线切割要素，原要素转历史，返回切出的各部分
func (uc *UserController) SplitFeature(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var payload splitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	result, err := services.NewSpatialService(dbFrom(c)).
		SplitFeature(actorFromContext(c), id, payload.Line)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (uc *UserController) FeatureCentroid(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	point, err := services.NewSpatialService(dbFrom(c)).Centroid(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feature_id": id, "centroid": point})
}
