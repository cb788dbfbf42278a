package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
	CtxPrincipal   = "principal"
)

// Principal is the verified caller of a request. It lives in the request
// context only and is never persisted.
type Principal struct {
	UID    string
	Email  string
	Claims map[string]any
}

// SetPrincipal stores the verified principal in the Gin context.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(CtxPrincipal, p)
	c.Set(CtxFirebaseUID, p.UID)
	if p.Email != "" {
		c.Set(CtxEmail, p.Email)
	}
}

// PrincipalFrom returns the principal set by the auth middleware.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by FirebaseAuthMiddleware
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

func claimString(claims map[string]any, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
