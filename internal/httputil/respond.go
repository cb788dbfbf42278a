// Package httputil writes the JSON envelope shared by every handler.
package httputil

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/logger"
)

// Error writes the error envelope for err. Underlying causes are only
// included when gin is not running in release mode.
func Error(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.JSON(status, body)
}

// Abort is Error for middleware that must stop the chain.
func Abort(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(c *gin.Context, err error) (int, gin.H) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)

	if status >= 500 {
		logger.FromGin(c).Error("request failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	body := gin.H{
		"ok":    false,
		"kind":  kind,
		"error": apperr.Message(err),
	}
	if gin.Mode() != gin.ReleaseMode {
		if detail := apperr.Detail(err); detail != "" {
			body["details"] = detail
		}
	}
	return status, body
}
