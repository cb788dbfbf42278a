package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/httputil"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

func callerUID(c *gin.Context) (string, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		httputil.Error(c, apperr.New(apperr.KindMissingCredential, "user not authenticated"))
		return "", false
	}
	return p.UID, true
}

func bindProject(c *gin.Context) (domain.ProjectFields, bool) {
	var req domain.ProjectFields
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return req, false
	}
	return req, true
}

func (h *Handler) list(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	items, err := h.projects.List(c.Request.Context(), uid)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	p, err := h.projects.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) create(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	req, ok := bindProject(c)
	if !ok {
		return
	}

	p, err := h.projects.Create(c.Request.Context(), uid, req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) update(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	req, ok := bindProject(c)
	if !ok {
		return
	}

	p, err := h.projects.Update(c.Request.Context(), uid, c.Param("id"), req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) delete(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}

	res, err := h.projects.Delete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project_id": res.ProjectID, "tasks_deleted": res.TasksDeleted})
}
