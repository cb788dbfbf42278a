package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/auth/domain"
	"github.com/projectdash/dashboard-backend/internal/httputil"
)

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		httputil.Error(c, apperr.New(apperr.KindMissingCredential, "user not authenticated"))
		return
	}

	profile, err := h.authService.GetProfile(c.Request.Context(), p.UID)
	if err != nil {
		httputil.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": profile})
}

// SyncProfile copies the verified identity into the local users table.
// The body is optional.
func (h *Handler) SyncProfile(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		httputil.Error(c, apperr.New(apperr.KindMissingCredential, "user not authenticated"))
		return
	}

	var body syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			httputil.Error(c, apperr.Wrap(apperr.KindValidation, "invalid JSON body", err))
			return
		}
	}

	profile, err := h.authService.SyncProfile(c.Request.Context(), &domain.SyncProfileRequest{
		FirebaseUID: p.UID,
		Email:       p.Email,
		DisplayName: body.DisplayName,
		PhotoURL:    body.PhotoURL,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": profile})
}

// UpdateProfile updates the user's profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		httputil.Error(c, apperr.New(apperr.KindMissingCredential, "user not authenticated"))
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), p.UID, &domain.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		httputil.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": profile})
}
