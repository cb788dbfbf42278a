package capability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/httputil"
	"github.com/projectdash/dashboard-backend/internal/logger"
)

type Handler struct {
	detector Detector
}

func NewHandler(detector Detector) *Handler {
	return &Handler{detector: detector}
}

// Register mounts the admin routes. The group is expected to be protected
// by the admin API key.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.POST("/refresh", h.Refresh)
}

func (h *Handler) Get(c *gin.Context) {
	present, err := h.detector.HasOwnerColumn(c.Request.Context())
	if err != nil {
		httputil.Error(c, apperr.Wrap(apperr.KindInternal, "capability detection failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "owner_column": present})
}

// Refresh is the operator signal sent after running the owner column
// migration.
func (h *Handler) Refresh(c *gin.Context) {
	present, err := Refresh(c.Request.Context(), h.detector)
	if err != nil {
		httputil.Error(c, apperr.Wrap(apperr.KindInternal, "capability refresh failed", err))
		return
	}
	logger.FromGin(c).Info("capability refreshed", zap.Bool("owner_column", present))
	c.JSON(http.StatusOK, gin.H{"ok": true, "owner_column": present})
}
