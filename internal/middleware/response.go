package middleware

import "github.com/gin-gonic/gin"

// abortError 统一错误响应并中断后续处理
func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}
