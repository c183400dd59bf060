package handlers

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse writes the uniform JSON error body all endpoints share.
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
