package views

import (
	"net/http"
	"strconv"

	"github.com/GrainArc/MapStudio/models"
	"github.com/GrainArc/MapStudio/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserController struct {
}

// 请求上下文透传到SQL层，客户端断连时取消在途查询
func dbFrom(c *gin.Context) *gorm.DB {
	return models.DB.WithContext(c.Request.Context())
}

// 操作人信息从请求头取，网关层负责鉴权后注入
func actorFromContext(c *gin.Context) services.Actor {
	userID, _ := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	return services.Actor{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// 错误类别到HTTP状态码的映射
func statusForError(err error) int {
	kind, ok := services.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound, services.KindExpired:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindOperationFailed, services.KindExternalTool:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func renderError(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
