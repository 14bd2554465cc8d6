package views

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
)

// 矢量瓦片出图。范围外或空瓦片回204，让前端静默跳过
func (uc *UserController) OutMVT(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	z, ok := paramInt(c, "z")
	if !ok {
		return
	}
	x, ok := paramInt(c, "x")
	if !ok {
		return
	}
	y, err := strconv.Atoi(strings.TrimSuffix(c.Param("y.pbf"), ".pbf"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid y"})
		return
	}

	tile, noContent, err := services.NewTileService(dbFrom(c)).GetTile(layerID, z, x, y)
	if err != nil {
		renderError(c, err)
		return
	}
	if noContent {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "application/vnd.mapbox-vector-tile", tile)
}

func (uc *UserController) TileMetadata(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	template := fmt.Sprintf("/geo/layers/%d/tiles/{z}/{x}/{y}.pbf", layerID)
	meta, err := services.NewTileService(dbFrom(c)).Metadata(layerID, template)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

type tileEnablePayload struct {
	MinZoom *int `json:"min_zoom"`
	MaxZoom *int `json:"max_zoom"`
}

func (uc *UserController) EnableTiles(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var payload tileEnablePayload
	c.ShouldBindJSON(&payload)

	layer, err := services.NewTileService(dbFrom(c)).Enable(layerID, payload.MinZoom, payload.MaxZoom)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, layer)
}

func (uc *UserController) DisableTiles(c *gin.Context) {
	layerID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := services.NewTileService(dbFrom(c)).Disable(layerID); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vector tiles disabled"})
}
