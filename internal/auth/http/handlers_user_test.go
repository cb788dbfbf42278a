package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/internal/auth"
	"github.com/projectdash/dashboard-backend/internal/auth/domain"
	"github.com/projectdash/dashboard-backend/internal/auth/service"
)

type memoryProfiles struct {
	rows map[string]*domain.Profile
}

func (m *memoryProfiles) GetByFirebaseUID(_ context.Context, uid string) (*domain.Profile, error) {
	p, ok := m.rows[uid]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (m *memoryProfiles) Upsert(_ context.Context, req *domain.SyncProfileRequest) (*domain.Profile, error) {
	now := time.Now()
	p, ok := m.rows[req.FirebaseUID]
	if !ok {
		p = &domain.Profile{FirebaseUID: req.FirebaseUID, Role: domain.DefaultRole, CreatedAt: now}
		m.rows[req.FirebaseUID] = p
	}
	p.Email = req.Email
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	p.UpdatedAt = now
	return p, nil
}

func (m *memoryProfiles) Update(_ context.Context, uid string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	p, ok := m.rows[uid]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if req.DisplayName != nil {
		p.DisplayName = req.DisplayName
	}
	return p, nil
}

func newProfileRouter(withPrincipal bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if withPrincipal {
		r.Use(func(c *gin.Context) {
			auth.SetPrincipal(c, &auth.Principal{UID: "u1", Email: "a@example.com"})
		})
	}
	h := New(service.NewAuthService(&memoryProfiles{rows: map[string]*domain.Profile{}}))
	h.Register(r.Group("/api/auth"))
	return r
}

func TestProfileFlow(t *testing.T) {
	r := newProfileRouter(true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/sync", strings.NewReader(`{"display_name":"Ada"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@example.com"`)
	assert.Contains(t, w.Body.String(), `"display_name":"Ada"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(`{"display_name":"Grace"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display_name":"Grace"`)
}

func TestSyncProfile_InvalidBody(t *testing.T) {
	r := newProfileRouter(true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/sync", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfile_RequiresPrincipal(t *testing.T) {
	r := newProfileRouter(false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
