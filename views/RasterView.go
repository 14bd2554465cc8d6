package views

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GrainArc/MapStudio/config"
	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func rasterService(c *gin.Context) *services.RasterService {
	return services.NewRasterService(dbFrom(c), config.Raster)
}

// 栅格上传。先落盘再交给GDAL验证，验证失败服务层会清掉文件
func (uc *UserController) UploadRaster(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	if err := os.MkdirAll(config.Raster, 0o755); err != nil {
		renderError(c, err)
		return
	}
	dst := filepath.Join(config.Raster, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		renderError(c, err)
		return
	}

	raster, err := rasterService(c).Upload(actorFromContext(c), name, dst, file.Size)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raster)
}

func (uc *UserController) ListRasters(c *gin.Context) {
	rasters, err := rasterService(c).List()
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rasters": rasters})
}

func (uc *UserController) GetRaster(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	raster, err := rasterService(c).Get(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, raster)
}

type generateTilesPayload struct {
	MinZoom int `json:"min_zoom"`
	MaxZoom int `json:"max_zoom"`
}

// 切片耗时较长，同步执行，客户端需放宽超时
func (uc *UserController) GenerateRasterTiles(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	payload := generateTilesPayload{MinZoom: 0, MaxZoom: 18}
	c.ShouldBindJSON(&payload)

	start := time.Now()
	raster, err := rasterService(c).GenerateTiles(id, payload.MinZoom, payload.MaxZoom)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"raster":  raster,
		"elapsed": fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
	})
}

func (uc *UserController) RasterTile(c *gin.Context) {
	id, ok := paramInt64(c, "id")
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
	y, err := strconv.Atoi(strings.TrimSuffix(c.Param("y.png"), ".png"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid y"})
		return
	}

	path, noContent, err := rasterService(c).Tile(id, z, x, y)
	if err != nil {
		renderError(c, err)
		return
	}
	if noContent {
		c.Status(http.StatusNoContent)
		return
	}
	c.File(path)
}

func (uc *UserController) RasterPreview(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	path, err := rasterService(c).Preview(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.File(path)
}

func (uc *UserController) RasterTileJSON(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	template := fmt.Sprintf("/geo/rasters/%d/tiles/{z}/{x}/{y}.png", id)
	meta, err := rasterService(c).TileJSON(id, template)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (uc *UserController) DeleteRaster(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := rasterService(c).Delete(actorFromContext(c), id); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "raster deleted"})
}
