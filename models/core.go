package models

import (
	"log"

	"github.com/GrainArc/MapStudio/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

func InitDB() {
	var err error
	DB, err = gorm.Open(postgres.Open(config.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		// 唯一索引冲突翻译成gorm.ErrDuplicatedKey，版本号撞号依赖此判断
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 批量迁移所有表
	if err := migrateAllTables(DB); err != nil {
		log.Printf("Failed to migrate tables: %v", err)
	}

	// 几何列与空间索引由原生SQL维护，GORM不感知geom字段
	if err := ensureGeometryColumn(DB); err != nil {
		log.Printf("Failed to ensure geometry column: %v", err)
	}
}

// migrateAllTables 批量迁移所有表
func migrateAllTables(db *gorm.DB) error {
	models := []interface{}{
		&Layer{},
		&Feature{},
		&Version{},
		&AuditLog{},
		&Raster{},
		&OfflineSync{},
		&LayerTileCache{},
	}

	return db.AutoMigrate(models...)
}

func ensureGeometryColumn(db *gorm.DB) error {
	sqls := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`ALTER TABLE feature ADD COLUMN IF NOT EXISTS geom geometry(Geometry, 4326)`,
		`CREATE INDEX IF NOT EXISTS idx_feature_geom ON feature USING GIST (geom)`,
	}
	for _, sql := range sqls {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}
