package domain

import "github.com/projectdash/dashboard-backend/internal/apperr"

var (
	ErrProjectNotFound = apperr.New(apperr.KindNotFound, "project not found")
	ErrTaskNotFound    = apperr.New(apperr.KindNotFound, "task not found")
)
