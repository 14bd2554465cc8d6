package views

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/GrainArc/MapStudio/Transformer"
	"github.com/GrainArc/MapStudio/config"
	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (uc *UserController) CreateLayer(c *gin.Context) {
	var input services.LayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	layer, err := services.NewLayerService(dbFrom(c)).Create(actorFromContext(c), input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, layer)
}

func (uc *UserController) ListLayers(c *gin.Context) {
	actor := actorFromContext(c)
	layers, err := services.NewLayerService(dbFrom(c)).List(actor.UserID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"layers": layers})
}

func (uc *UserController) GetLayer(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	layer, err := services.NewLayerService(dbFrom(c)).Get(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, layer)
}

func (uc *UserController) UpdateLayer(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var input services.LayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	layer, err := services.NewLayerService(dbFrom(c)).Update(actorFromContext(c), id, input)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, layer)
}

func (uc *UserController) DeleteLayer(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := services.NewLayerService(dbFrom(c)).Delete(actorFromContext(c), id); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "layer deleted"})
}

type reorderPayload struct {
	LayerIDs []int64 `json:"layer_ids"`
}

func (uc *UserController) ReorderLayers(c *gin.Context) {
	var payload reorderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	actor := actorFromContext(c)
	if err := services.NewLayerService(dbFrom(c)).Reorder(actor, actor.UserID, payload.LayerIDs); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "layers reordered"})
}

// 图层拓扑检查
func (uc *UserController) ValidateLayerTopology(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	report, err := services.NewTopologyService(dbFrom(c)).ValidateLayer(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// shapefile压缩包导入到指定图层
func (uc *UserController) ImportShapefile(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	workDir := filepath.Join(config.Download, uuid.New().String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		renderError(c, err)
		return
	}
	defer os.RemoveAll(workDir)

	zipPath := filepath.Join(workDir, file.Filename)
	if err := c.SaveUploadedFile(file, zipPath); err != nil {
		renderError(c, err)
		return
	}

	count, err := Transformer.ImportShapefile(dbFrom(c), actorFromContext(c), id, zipPath)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": count})
}

// 图层导出为shapefile压缩包
func (uc *UserController) ExportShapefile(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := os.MkdirAll(config.Download, 0o755); err != nil {
		renderError(c, err)
		return
	}
	zipPath, err := Transformer.ExportShapefile(dbFrom(c), actorFromContext(c), id, config.Download)
	if err != nil {
		renderError(c, err)
		return
	}
	c.FileAttachment(zipPath, fmt.Sprintf("layer_%d.zip", id))
}
