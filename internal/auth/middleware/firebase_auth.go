package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/httputil"
	"github.com/projectdash/dashboard-backend/internal/logger"
	"github.com/projectdash/dashboard-backend/internal/metrics"
)

type Verifier interface {
	Verify(ctx context.Context, credential string) (*auth.Principal, error)
}

// FirebaseAuthMiddleware verifies the bearer token and stores the principal
// in the Gin context. The raw token is not kept.
func FirebaseAuthMiddleware(verifier Verifier, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := verifier.Verify(c.Request.Context(), extractToken(c))
		if err != nil {
			kind := apperr.KindOf(err)
			m.AuthFailure(string(kind))
			logger.FromGin(c).Warn("authentication rejected",
				zap.String("kind", string(kind)),
				zap.String("reason", apperr.Detail(err)),
			)
			httputil.Abort(c, err)
			return
		}

		auth.SetPrincipal(c, p)

		ctx := logger.WithContext(c.Request.Context(), logger.FromGin(c).With(zap.String("uid", p.UID)))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
