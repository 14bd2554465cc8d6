package views

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
)

func queryTime(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func (uc *UserController) ListAuditLogs(c *gin.Context) {
	entityID, _ := strconv.ParseInt(c.Query("entity_id"), 10, 64)
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)

	filter := services.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
		Action:     c.Query("action"),
		UserID:     userID,
		From:       queryTime(c, "from"),
		To:         queryTime(c, "to"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
	}
	page, err := services.NewAuditService(dbFrom(c)).List(filter)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (uc *UserController) GetAuditLog(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	entry, err := services.NewAuditService(dbFrom(c)).Get(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (uc *UserController) AuditLogsForEntity(c *gin.Context) {
	entityID, ok := paramInt64(c, "entity_id")
	if !ok {
		return
	}
	page, err := services.NewAuditService(dbFrom(c)).
		ForEntity(c.Param("entity_type"), entityID, queryInt(c, "page", 1), queryInt(c, "page_size", 50))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (uc *UserController) AuditSummary(c *gin.Context) {
	summary, err := services.NewAuditService(dbFrom(c)).Summary()
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
