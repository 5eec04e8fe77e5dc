package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/service"
	"thailao_logistics/pkg/logger"
)

// ==================== 统一响应 ====================

// ErrorResponse 失败响应
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func okMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

// fail 按错误类别映射 HTTP 状态码，内部错误不外泄
func fail(c *gin.Context, err error) {
	status := statusOf(service.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.L().Error("请求处理失败",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int64("user_id", middleware.GetUserID(c)),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"success": false, "error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func bindError(c *gin.Context, err error) {
	badRequest(c, "Invalid request: "+err.Error())
}

func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindInvalidArgument:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// parseID 解析路径参数 id
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}

// actorOf 当前登录用户
func actorOf(c *gin.Context) service.Actor {
	return service.Actor{
		ID:   middleware.GetUserID(c),
		Role: middleware.GetUserRole(c),
	}
}
