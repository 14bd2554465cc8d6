package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/GrainArc/MapStudio/models"
	"gorm.io/gorm"
)

// RasterService 栅格入库与切片，依赖外部GDAL工具链
type RasterService struct {
	db        *gorm.DB
	rasterDir string
}

func NewRasterService(db *gorm.DB, rasterDir string) *RasterService {
	return &RasterService{db: db, rasterDir: rasterDir}
}

// gdalinfo -json 输出中用得到的字段
type gdalInfo struct {
	DriverShortName string `json:"driverShortName"`
	Size            []int  `json:"size"`
	Bands           []struct {
		ColorInterpretation string `json:"colorInterpretation"`
	} `json:"bands"`
	WGS84Extent struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	} `json:"wgs84Extent"`
	Metadata map[string]map[string]string `json:"metadata"`
}

func runGdal(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, NewExternalToolError(name+" failed", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

// introspect 用gdalinfo读取栅格元信息，读不出来视为无效栅格
func (s *RasterService) introspect(filePath string) (*gdalInfo, error) {
	out, err := runGdal("gdalinfo", "-json", filePath)
	if err != nil {
		return nil, err
	}
	var info gdalInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, NewExternalToolError("gdalinfo output unreadable", err.Error(), err)
	}
	if len(info.Size) != 2 || len(info.Bands) == 0 {
		return nil, NewValidationError("file is not a valid raster")
	}
	return &info, nil
}

// WGS84外包环折算成[minx, miny, maxx, maxy]
func extentToBounds(coords [][][]float64) []float64 {
	if len(coords) == 0 || len(coords[0]) == 0 {
		return nil
	}
	ring := coords[0]
	minX, minY := ring[0][0], ring[0][1]
	maxX, maxY := minX, minY
	for _, pt := range ring {
		if len(pt) < 2 {
			continue
		}
		if pt[0] < minX {
			minX = pt[0]
		}
		if pt[0] > maxX {
			maxX = pt[0]
		}
		if pt[1] < minY {
			minY = pt[1]
		}
		if pt[1] > maxY {
			maxY = pt[1]
		}
	}
	return []float64{minX, minY, maxX, maxY}
}

// Upload 登记一个已落盘的栅格文件。元信息读取失败时清掉文件再报错
func (s *RasterService) Upload(actor Actor, name string, filePath string, fileSize int64) (*models.Raster, error) {
	info, err := s.introspect(filePath)
	if err != nil {
		os.Remove(filePath)
		return nil, err
	}

	bounds := extentToBounds(info.WGS84Extent.Coordinates)
	var boundsJSON []byte
	if bounds != nil {
		boundsJSON, _ = json.Marshal(bounds)
	}
	metaJSON, _ := json.Marshal(info.Metadata)

	var raster models.Raster
	err = s.db.Transaction(func(tx *gorm.DB) error {
		layer := models.Layer{
			UserID:    actor.UserID,
			Name:      name,
			LayerType: models.LayerTypeRaster,
		}
		if err := tx.Create(&layer).Error; err != nil {
			return err
		}

		colorInterp := ""
		if len(info.Bands) > 0 {
			colorInterp = info.Bands[0].ColorInterpretation
		}
		raster = models.Raster{
			LayerID:             layer.ID,
			Name:                name,
			FilePath:            filePath,
			FileType:            strings.ToLower(info.DriverShortName),
			FileSize:            fileSize,
			Bounds:              boundsJSON,
			Width:               info.Size[0],
			Height:              info.Size[1],
			Bands:               len(info.Bands),
			ColorInterpretation: colorInterp,
			Metadata:            metaJSON,
		}
		if err := tx.Create(&raster).Error; err != nil {
			return err
		}

		if bounds != nil {
			tileBounds, _ := json.Marshal(bounds)
			if err := tx.Model(&layer).Update("tile_bounds", tileBounds).Error; err != nil {
				return err
			}
		}
		return NewAuditService(tx).LogImport(actor, "raster", layer.ID, 1)
	})
	if err != nil {
		return nil, err
	}
	return &raster, nil
}

func (s *RasterService) Get(id int64) (*models.Raster, error) {
	var raster models.Raster
	if err := s.db.Where("id = ?", id).First(&raster).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewNotFoundError("raster %d not found", id)
		}
		return nil, err
	}
	return &raster, nil
}

func (s *RasterService) List() ([]models.Raster, error) {
	var rasters []models.Raster
	if err := s.db.Order("created_at DESC").Find(&rasters).Error; err != nil {
		return nil, err
	}
	return rasters, nil
}

// GenerateTiles 调gdal2tiles切墨卡托方案瓦片，完成后标记为tiled
func (s *RasterService) GenerateTiles(id int64, minZoom int, maxZoom int) (*models.Raster, error) {
	if minZoom < 0 || maxZoom > 24 || minZoom > maxZoom {
		return nil, NewValidationError("invalid zoom range %d-%d", minZoom, maxZoom)
	}
	raster, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	tileDir := filepath.Join(s.rasterDir, "tiles", fmt.Sprintf("%d", raster.ID))
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tile dir: %w", err)
	}

	_, err = runGdal("python3", "-m", "osgeo_utils.gdal2tiles",
		"-z", fmt.Sprintf("%d-%d", minZoom, maxZoom),
		"-w", "none",
		"-p", "mercator",
		raster.FilePath, tileDir)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_tiled": true, "tile_path": tileDir}
	if err := s.db.Model(raster).Updates(updates).Error; err != nil {
		return nil, err
	}
	return raster, nil
}

// Tile 返回切片文件路径。noContent为true表示坐标合法但该处无瓦片
func (s *RasterService) Tile(id int64, z int, x int, y int) (string, bool, error) {
	raster, err := s.Get(id)
	if err != nil {
		return "", false, err
	}
	if !raster.IsTiled {
		return "", false, NewNotFoundError("raster %d has no tiles, generate them first", id)
	}
	path := filepath.Join(raster.TilePath, fmt.Sprintf("%d", z), fmt.Sprintf("%d", x), fmt.Sprintf("%d.png", y))
	if _, err := os.Stat(path); err != nil {
		return "", true, nil
	}
	return path, false, nil
}

// Preview 生成预览图，大图先用gdal_translate压到1024宽
func (s *RasterService) Preview(id int64) (string, error) {
	raster, err := s.Get(id)
	if err != nil {
		return "", err
	}

	previewPath := filepath.Join(s.rasterDir, "previews", fmt.Sprintf("%d.png", raster.ID))
	if _, err := os.Stat(previewPath); err == nil {
		return previewPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(previewPath), 0o755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}

	args := []string{"-of", "PNG"}
	if raster.Width > 1024 {
		args = append(args, "-outsize", "1024", "0")
	}
	args = append(args, raster.FilePath, previewPath)
	if _, err := runGdal("gdal_translate", args...); err != nil {
		return "", err
	}
	return previewPath, nil
}

// TileJSON 栅格瓦片的TileJSON元数据
func (s *RasterService) TileJSON(id int64, tileURLTemplate string) (map[string]interface{}, error) {
	raster, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !raster.IsTiled {
		return nil, NewNotFoundError("raster %d has no tiles", id)
	}

	meta := map[string]interface{}{
		"tilejson": "3.0.0",
		"name":     raster.Name,
		"tiles":    []string{tileURLTemplate},
		"format":   "png",
		"scheme":   "tms",
	}
	if len(raster.Bounds) > 0 {
		var bounds []float64
		if err := json.Unmarshal(raster.Bounds, &bounds); err == nil && len(bounds) == 4 {
			meta["bounds"] = bounds
		}
	}
	return meta, nil
}

// Delete 删除记录、原始文件与切片目录
func (s *RasterService) Delete(actor Actor, id int64) error {
	raster, err := s.Get(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(raster).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", raster.LayerID).Delete(&models.Layer{}).Error; err != nil {
			return err
		}
		return NewAuditService(tx).Log(actor, models.ActionDelete, "raster", raster.ID, map[string]interface{}{
			"name":      raster.Name,
			"file_path": raster.FilePath,
		}, nil)
	})
	if err != nil {
		return err
	}

	os.Remove(raster.FilePath)
	if raster.TilePath != "" {
		os.RemoveAll(raster.TilePath)
	}
	return nil
}
