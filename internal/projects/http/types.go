package http

import (
	"github.com/projectdash/dashboard-backend/internal/export"
	"github.com/projectdash/dashboard-backend/internal/projects/service"
)

// Handler bundles the dependencies for project and task endpoints.
type Handler struct {
	projects *service.ProjectService
	tasks    *service.TaskService
	exporter *export.Exporter
}

func New(projects *service.ProjectService, tasks *service.TaskService, exporter *export.Exporter) *Handler {
	return &Handler{projects: projects, tasks: tasks, exporter: exporter}
}
