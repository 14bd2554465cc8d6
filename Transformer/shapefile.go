package Transformer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/GrainArc/MapStudio/methods"
	"github.com/GrainArc/MapStudio/pgmvt"
	"github.com/GrainArc/MapStudio/services"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
)

func runOgr(args ...string) error {
	cmd := exec.Command("ogr2ogr", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.NewExternalToolError("ogr2ogr failed", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// ShpToGeojson shapefile转GeoJSON，顺带重投影到4326
func ShpToGeojson(shpPath string, outPath string) error {
	return runOgr("-f", "GeoJSON", "-t_srs", "EPSG:4326", outPath, shpPath)
}

// ImportShapefile 解压上传的压缩包，找到shp转成GeoJSON后逐要素入库。
// 全部要素在一个事务里落库，失败整体回滚
func ImportShapefile(db *gorm.DB, actor services.Actor, layerID int64, zipPath string) (int, error) {
	dir, err := methods.Unzip(zipPath)
	if err != nil {
		return 0, services.NewValidationError("cannot unpack archive: %v", err)
	}
	defer os.RemoveAll(dir)

	shpPath, err := methods.FindByExt(dir, ".shp")
	if err != nil {
		return 0, services.NewValidationError("archive contains no shapefile")
	}

	geojsonPath := filepath.Join(dir, "converted.geojson")
	if err := ShpToGeojson(shpPath, geojsonPath); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(geojsonPath)
	if err != nil {
		return 0, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, services.NewValidationError("converted geojson unreadable: %v", err)
	}
	if len(fc.Features) == 0 {
		return 0, services.NewValidationError("shapefile contains no features")
	}

	count := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		fs := services.NewFeatureService(tx)
		for _, f := range fc.Features {
			if f.Geometry == nil {
				continue
			}
			raw, err := json.Marshal(geojson.NewGeometry(f.Geometry))
			if err != nil {
				return err
			}
			props := map[string]interface{}(f.Properties)
			if _, err := fs.Create(layerID, props, raw); err != nil {
				return err
			}
			count++
		}
		if count == 0 {
			return services.NewValidationError("shapefile contains no usable geometries")
		}
		if err := services.NewAuditService(tx).LogImport(actor, "shapefile", layerID, count); err != nil {
			return err
		}
		pgmvt.DelLayerMVT(tx, layerID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ExportShapefile 导出图层活动要素为shapefile压缩包，返回zip路径
func ExportShapefile(db *gorm.DB, actor services.Actor, layerID int64, workDir string) (string, error) {
	collection, err := services.NewFeatureService(db).ListActive(layerID, nil)
	if err != nil {
		return "", err
	}
	if len(collection.Features) == 0 {
		return "", services.NewValidationError("layer %d has no active features to export", layerID)
	}

	exportDir := filepath.Join(workDir, fmt.Sprintf("layer_%d_export", layerID))
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", err
	}

	geojsonPath := filepath.Join(exportDir, "features.geojson")
	raw, err := json.Marshal(collection)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(geojsonPath, raw, 0o644); err != nil {
		return "", err
	}

	shpPath := filepath.Join(exportDir, "export.shp")
	if err := runOgr("-f", "ESRI Shapefile", "-lco", "ENCODING=UTF-8", shpPath, geojsonPath); err != nil {
		return "", err
	}

	// shapefile是一组同名文件，有哪个带哪个
	var parts []string
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj", ".cpg"} {
		p := filepath.Join(exportDir, "export"+ext)
		if _, err := os.Stat(p); err == nil {
			parts = append(parts, p)
		}
	}

	zipPath := filepath.Join(workDir, fmt.Sprintf("layer_%d.zip", layerID))
	if err := methods.ZipFiles(zipPath, parts); err != nil {
		return "", err
	}
	os.RemoveAll(exportDir)

	if err := services.NewAuditService(db).LogExport(actor, "shapefile", layerID); err != nil {
		return "", err
	}
	return zipPath, nil
}
