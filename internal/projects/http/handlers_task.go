package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/httputil"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

func bindTask(c *gin.Context) (domain.TaskFields, bool) {
	var req domain.TaskFields
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return req, false
	}
	return req, true
}

func (h *Handler) createTask(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	req, ok := bindTask(c)
	if !ok {
		return
	}

	t, err := h.tasks.Create(c.Request.Context(), uid, req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "task": t})
}

func (h *Handler) getTask(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	t, err := h.tasks.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": t})
}

// updateTask merges the provided fields into the stored task.
func (h *Handler) updateTask(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	req, ok := bindTask(c)
	if !ok {
		return
	}

	t, err := h.tasks.Update(c.Request.Context(), uid, c.Param("id"), req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": t})
}

func (h *Handler) deleteTask(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		httputil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
