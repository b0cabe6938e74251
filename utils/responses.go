package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every API response uses the same envelope: status is "success" or "error",
// message carries human-readable detail, data the payload.

func RespondSuccess(c *gin.Context, code int, data gin.H) {
	body := gin.H{"status": "success"}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

func RespondCreated(c *gin.Context, message string, data gin.H) {
	body := gin.H{"status": "success", "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusCreated, body)
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "error", "message": message})
}

// RespondValidationError reports field-level validation problems.
func RespondValidationError(c *gin.Context, message string, fieldErrors map[string]string) {
	body := gin.H{"status": "error", "message": message}
	if len(fieldErrors) > 0 {
		body["errors"] = fieldErrors
	}
	c.JSON(http.StatusBadRequest, body)
}
