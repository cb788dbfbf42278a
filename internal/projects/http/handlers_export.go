package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/export"
	"github.com/projectdash/dashboard-backend/internal/httputil"
	"github.com/projectdash/dashboard-backend/internal/logger"
)

// export streams a CSV or PDF report. Once the first byte is written the
// status can no longer change, so stream failures are only logged.
func (h *Handler) export(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		httputil.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	p, err := h.projects.ExportSnapshot(ctx, uid, c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}

	streaming := false
	err = h.exporter.Export(ctx, p, format, func(a export.Artifact) error {
		c.Header("Content-Type", a.ContentType)
		c.Header("Content-Length", strconv.FormatInt(a.Size, 10))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
		c.Status(http.StatusOK)
		streaming = true
		_, err := io.Copy(c.Writer, a.Body)
		return err
	})
	if err == nil {
		return
	}
	if streaming {
		logger.FromGin(c).Warn("export stream aborted", zap.String("project_id", p.ID), zap.Error(err))
		return
	}
	httputil.Error(c, err)
}
