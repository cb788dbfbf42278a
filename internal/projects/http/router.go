package http

import "github.com/gin-gonic/gin"

// RegisterProjects attaches project routes to the given router group.
func (h *Handler) RegisterProjects(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.GET("/:id/export/:format", h.export)
}

func (h *Handler) RegisterTasks(rg *gin.RouterGroup) {
	rg.POST("", h.createTask)
	rg.GET("/:id", h.getTask)
	rg.PUT("/:id", h.updateTask)
	rg.DELETE("/:id", h.deleteTask)
}
