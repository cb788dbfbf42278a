package auth

import (
	"context"
	"errors"
	"net"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

// IdentityService is the part of the external identity provider the backend
// relies on. VerifyToken returns classified *apperr.Error values.
type IdentityService interface {
	VerifyToken(ctx context.Context, idToken string) (*Principal, error)
	DeleteUser(ctx context.Context, uid string) error
	RevokeSessions(ctx context.Context, uid string) error
}

// FirebaseIdentity adapts the Firebase Admin auth client.
type FirebaseIdentity struct {
	client       *auth.Client
	checkRevoked bool
}

func NewFirebaseIdentity(client *auth.Client, checkRevoked bool) *FirebaseIdentity {
	return &FirebaseIdentity{client: client, checkRevoked: checkRevoked}
}

func (f *FirebaseIdentity) VerifyToken(ctx context.Context, idToken string) (*Principal, error) {
	var (
		token *auth.Token
		err   error
	)
	if f.checkRevoked {
		token, err = f.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = f.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, classifyVerifyError(err)
	}

	return &Principal{
		UID:    token.UID,
		Email:  claimString(token.Claims, "email"),
		Claims: token.Claims,
	}, nil
}

// DeleteUser removes the identity record. A record that is already gone
// counts as deleted.
func (f *FirebaseIdentity) DeleteUser(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}

func (f *FirebaseIdentity) RevokeSessions(ctx context.Context, uid string) error {
	if err := f.client.RevokeRefreshTokens(ctx, uid); err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}

func classifyVerifyError(err error) error {
	switch {
	case auth.IsIDTokenExpired(err),
		auth.IsIDTokenInvalid(err),
		auth.IsIDTokenRevoked(err),
		auth.IsUserDisabled(err),
		auth.IsUserNotFound(err):
		return apperr.Wrap(apperr.KindInvalidCredential, "invalid or expired token", err)
	case auth.IsCertificateFetchFailed(err),
		errorutils.IsUnavailable(err),
		errorutils.IsDeadlineExceeded(err):
		return apperr.Wrap(apperr.KindAuthServiceUnavailable, "authentication service unavailable", err)
	}
	return classifyTransportError(err)
}

// classifyTransportError maps failures that never reached the identity
// service. Anything unrecognised is an internal auth error.
func classifyTransportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return apperr.Wrap(apperr.KindAuthServiceUnavailable, "authentication service unavailable", err)
	case errors.Is(err, context.Canceled):
		return apperr.Wrap(apperr.KindAuthServiceUnavailable, "authentication aborted", err)
	}
	return apperr.Wrap(apperr.KindInternalAuth, "authentication failed", err)
}
