package routers

import (
	"github.com/GrainArc/MapStudio/views"
	"github.com/gin-gonic/gin"
)

func GeoRouters(r *gin.Engine) {
	UserController := &views.UserController{}
	mapRouter := r.Group("/geo")
	{
		// 图层
		mapRouter.POST("/layers", UserController.CreateLayer)
		mapRouter.GET("/layers", UserController.ListLayers)
		mapRouter.GET("/layers/:id", UserController.GetLayer)
		mapRouter.PUT("/layers/:id", UserController.UpdateLayer)
		mapRouter.DELETE("/layers/:id", UserController.DeleteLayer)
		mapRouter.POST("/layers/reorder", UserController.ReorderLayers)
		mapRouter.GET("/layers/:id/topology", UserController.ValidateLayerTopology)
		mapRouter.POST("/layers/:id/import/shapefile", UserController.ImportShapefile)
		mapRouter.GET("/layers/:id/export/shapefile", UserController.ExportShapefile)

		// 要素
		mapRouter.POST("/layers/:id/features", UserController.CreateFeature)
		mapRouter.GET("/layers/:id/features", UserController.ListFeatures)
		mapRouter.POST("/layers/:id/features/query", UserController.SpatialQuery)
		mapRouter.GET("/features/:id", UserController.GetFeature)
		mapRouter.PUT("/features/:id", UserController.UpdateFeature)
		mapRouter.DELETE("/features/:id", UserController.DeleteFeature)
		mapRouter.GET("/features/:id/centroid", UserController.FeatureCentroid)

		// 空间运算
		mapRouter.POST("/spatial/operate", UserController.SpatialOperation)
		mapRouter.POST("/features/:id/split", UserController.SplitFeature)

		// 版本
		mapRouter.GET("/features/:id/versions", UserController.ListVersions)
		mapRouter.POST("/features/:id/versions", UserController.CreateVersion)
		mapRouter.GET("/features/:id/versions/number/:number", UserController.GetFeatureAtVersion)
		mapRouter.GET("/versions/:version_id", UserController.GetVersion)
		mapRouter.POST("/versions/:version_id/restore", UserController.RestoreVersion)
		mapRouter.GET("/versions/compare/:v1/:v2", UserController.CompareVersions)

		// 审计
		mapRouter.GET("/audit", UserController.ListAuditLogs)
		mapRouter.GET("/audit/summary", UserController.AuditSummary)
		mapRouter.GET("/audit/:id", UserController.GetAuditLog)
		mapRouter.GET("/audit/entity/:entity_type/:entity_id", UserController.AuditLogsForEntity)

		// 矢量瓦片
		mapRouter.GET("/layers/:id/tiles/:z/:x/:y.pbf", UserController.OutMVT)
		mapRouter.GET("/layers/:id/tilejson", UserController.TileMetadata)
		mapRouter.POST("/layers/:id/tiles/enable", UserController.EnableTiles)
		mapRouter.POST("/layers/:id/tiles/disable", UserController.DisableTiles)

		// 离线同步
		mapRouter.POST("/offline/sync", UserController.OfflineSync)
		mapRouter.GET("/offline/syncs", UserController.OfflineIndex)
		mapRouter.GET("/offline/syncs/:layer_id", UserController.OfflineShow)
		mapRouter.DELETE("/offline/syncs/:layer_id", UserController.OfflineDelete)
		mapRouter.POST("/offline/changes", UserController.OfflineSyncChanges)

		// 栅格
		mapRouter.POST("/rasters", UserController.UploadRaster)
		mapRouter.GET("/rasters", UserController.ListRasters)
		mapRouter.GET("/rasters/:id", UserController.GetRaster)
		mapRouter.DELETE("/rasters/:id", UserController.DeleteRaster)
		mapRouter.POST("/rasters/:id/tiles", UserController.GenerateRasterTiles)
		mapRouter.GET("/rasters/:id/tiles/:z/:x/:y.png", UserController.RasterTile)
		mapRouter.GET("/rasters/:id/preview", UserController.RasterPreview)
		mapRouter.GET("/rasters/:id/tilejson", UserController.RasterTileJSON)
	}
}
