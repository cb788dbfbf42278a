package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/httputil"
)

const APIKeyHeader = "X-API-Key"

// APIKey guards operator endpoints. With no key configured the routes are
// closed.
func APIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			httputil.Abort(c, apperr.New(apperr.KindAuthServiceUnavailable, "admin API key not configured"))
			return
		}
		got := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if got == "" {
			httputil.Abort(c, apperr.New(apperr.KindMissingCredential, "missing API key"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			httputil.Abort(c, apperr.New(apperr.KindInvalidCredential, "invalid API key"))
			return
		}
		c.Next()
	}
}
