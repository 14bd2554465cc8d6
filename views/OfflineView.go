package views

import (
	"net/http"

	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
)

type offlineSyncPayload struct {
	LayerID    int64     `json:"layer_id"`
	SyncType   string    `json:"sync_type"`
	BBox       []float64 `json:"bbox"`
	FeatureIDs []int64   `json:"feature_ids"`
	ExpireDays *int      `json:"expire_days"`
}

// 离线包下载。未指定有效期按7天算
func (uc *UserController) OfflineSync(c *gin.Context) {
	var payload offlineSyncPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	days := services.DefaultExpireDays
	if payload.ExpireDays != nil {
		days = *payload.ExpireDays
	}
	pkg, err := services.NewOfflineService(dbFrom(c)).
		Sync(actorFromContext(c), payload.LayerID, payload.SyncType, payload.BBox, payload.FeatureIDs, days)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (uc *UserController) OfflineIndex(c *gin.Context) {
	actor := actorFromContext(c)
	syncs, err := services.NewOfflineService(dbFrom(c)).Index(actor.UserID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"syncs": syncs})
}

func (uc *UserController) OfflineShow(c *gin.Context) {
	layerID, ok := paramInt64(c, "layer_id")
	if !ok {
		return
	}
	actor := actorFromContext(c)
	sync, err := services.NewOfflineService(dbFrom(c)).Show(actor.UserID, layerID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sync)
}

func (uc *UserController) OfflineDelete(c *gin.Context) {
	layerID, ok := paramInt64(c, "layer_id")
	if !ok {
		return
	}
	actor := actorFromContext(c)
	if err := services.NewOfflineService(dbFrom(c)).Delete(actor.UserID, layerID); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "offline sync deleted"})
}

type offlineChangesPayload struct {
	Changes []services.OfflineChange `json:"changes"`
}

// 离线变更回传，逐条应用，返回每条的结果
func (uc *UserController) OfflineSyncChanges(c *gin.Context) {
	var payload offlineChangesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(payload.Changes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "changes must not be empty"})
		return
	}
	results := services.NewOfflineService(dbFrom(c)).
		SyncChanges(actorFromContext(c), payload.Changes)
	c.JSON(http.StatusOK, gin.H{"results": results})
}
