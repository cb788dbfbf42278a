package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.DELETE("", h.Delete)
}

func (h *Handler) Delete(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		httputil.Error(c, apperr.New(apperr.KindMissingCredential, "user not authenticated"))
		return
	}

	res, err := h.svc.DeleteAccount(c.Request.Context(), p)
	if err != nil {
		httputil.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}
