package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

// TokenVerifier turns a bearer credential into a Principal.
type TokenVerifier struct {
	identity    IdentityService
	revocations RevocationList
}

// NewTokenVerifier accepts a nil identity service (unconfigured provider) and
// a nil revocation list.
func NewTokenVerifier(identity IdentityService, revocations RevocationList) *TokenVerifier {
	return &TokenVerifier{identity: identity, revocations: revocations}
}

// Verify fails with missing_credential, invalid_credential,
// auth_service_unavailable or internal_auth_error.
func (v *TokenVerifier) Verify(ctx context.Context, credential string) (*Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apperr.New(apperr.KindMissingCredential, "missing authorization token")
	}
	if v.identity == nil {
		return nil, apperr.New(apperr.KindAuthServiceUnavailable, "authentication service not configured")
	}

	p, err := v.identity.VerifyToken(ctx, credential)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, classifyTransportError(err)
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, p.UID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindAuthServiceUnavailable, "revocation check unavailable", err)
		}
		if revoked {
			return nil, apperr.New(apperr.KindInvalidCredential, "account has been deleted")
		}
	}

	return p, nil
}
