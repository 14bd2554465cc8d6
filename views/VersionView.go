package views

import (
	"net/http"

	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
)

func (uc *UserController) ListVersions(c *gin.Context) {
	featureID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	versions, err := services.NewVersioningService(dbFrom(c)).ListVersions(featureID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feature_id": featureID, "versions": versions})
}

func (uc *UserController) GetVersion(c *gin.Context) {
	id, ok := paramInt64(c, "version_id")
	if !ok {
		return
	}
	version, err := services.NewVersioningService(dbFrom(c)).GetVersion(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

func (uc *UserController) GetFeatureAtVersion(c *gin.Context) {
	featureID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	number, ok := paramInt64(c, "number")
	if !ok {
		return
	}
	version, err := services.NewVersioningService(dbFrom(c)).GetFeatureAtVersion(featureID, number)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

type createVersionPayload struct {
	Description string `json:"description"`
}

func (uc *UserController) CreateVersion(c *gin.Context) {
	featureID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var payload createVersionPayload
	c.ShouldBindJSON(&payload)

	version, err := services.NewVersioningService(dbFrom(c)).
		CreateVersion(actorFromContext(c), featureID, payload.Description)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, version)
}

// 版本回滚。回滚本身也会生成两个新版本，历史不丢
func (uc *UserController) RestoreVersion(c *gin.Context) {
	versionID, ok := paramInt64(c, "version_id")
	if !ok {
		return
	}
	feature, err := services.NewVersioningService(dbFrom(c)).
		RestoreVersion(actorFromContext(c), versionID)
	if err != nil {
		renderError(c, err)
		return
	}
	result, err := services.NewFeatureService(dbFrom(c)).Materialize(feature.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (uc *UserController) CompareVersions(c *gin.Context) {
	v1, ok := paramInt64(c, "v1")
	if !ok {
		return
	}
	v2, ok := paramInt64(c, "v2")
	if !ok {
		return
	}
	comparison, err := services.NewVersioningService(dbFrom(c)).CompareVersions(v1, v2)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}
