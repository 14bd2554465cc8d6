package services

import (
	"path/filepath"
	"testing"

	"github.com/GrainArc/MapStudio/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// 测试库走sqlite文件库，表结构与生产一致但没有geom列，
// 几何相关路径按无空间后端降级
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Layer{},
		&models.Feature{},
		&models.Version{},
		&models.AuditLog{},
		&models.Raster{},
		&models.OfflineSync{},
		&models.LayerTileCache{},
	)
	require.NoError(t, err)
	return db
}

func newTestLayer(t *testing.T, db *gorm.DB, name string) *models.Layer {
	t.Helper()
	layer := models.Layer{UserID: 1, Name: name, LayerType: models.LayerTypeVector, Visible: true}
	require.NoError(t, db.Create(&layer).Error)
	return &layer
}

func newTestFeature(t *testing.T, db *gorm.DB, layerID int64, props map[string]interface{}) *models.Feature {
	t.Helper()
	feature, err := NewFeatureService(db).Create(layerID, props, nil)
	require.NoError(t, err)
	return feature
}

var testActor = Actor{UserID: 42, IPAddress: "10.0.0.1", UserAgent: "test-agent"}
