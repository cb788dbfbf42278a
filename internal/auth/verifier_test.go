package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

type fakeIdentity struct {
	principal *Principal
	err       error
	calls     int
}

func (f *fakeIdentity) VerifyToken(_ context.Context, _ string) (*Principal, error) {
	f.calls++
	return f.principal, f.err
}

func (f *fakeIdentity) DeleteUser(context.Context, string) error     { return nil }
func (f *fakeIdentity) RevokeSessions(context.Context, string) error { return nil }

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string) error { return nil }
func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestVerify_MissingCredential(t *testing.T) {
	id := &fakeIdentity{}
	v := NewTokenVerifier(id, nil)

	_, err := v.Verify(context.Background(), "   ")

	assert.Equal(t, apperr.KindMissingCredential, apperr.KindOf(err))
	assert.Zero(t, id.calls)
}

func TestVerify_Unconfigured(t *testing.T) {
	v := NewTokenVerifier(nil, nil)

	_, err := v.Verify(context.Background(), "token")

	assert.Equal(t, apperr.KindAuthServiceUnavailable, apperr.KindOf(err))
}

func TestVerify_PassesClassifiedErrorsThrough(t *testing.T) {
	rejected := apperr.New(apperr.KindInvalidCredential, "invalid or expired token")
	v := NewTokenVerifier(&fakeIdentity{err: rejected}, nil)

	_, err := v.Verify(context.Background(), "expired")

	assert.ErrorIs(t, err, rejected)
}

func TestVerify_ClassifiesRawErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "www.googleapis.com"}, apperr.KindAuthServiceUnavailable},
		{"timeout", fmt.Errorf("fetch keys: %w", context.DeadlineExceeded), apperr.KindAuthServiceUnavailable},
		{"unknown", errors.New("unexpected claim type"), apperr.KindInternalAuth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewTokenVerifier(&fakeIdentity{err: tc.err}, nil)
			_, err := v.Verify(context.Background(), "tok")
			assert.Equal(t, tc.want, apperr.KindOf(err))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestVerify_Success(t *testing.T) {
	want := &Principal{UID: "u1", Email: "a@example.com"}
	v := NewTokenVerifier(&fakeIdentity{principal: want}, NewMemoryRevocations(0))

	got, err := v.Verify(context.Background(), "good")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVerify_RevokedPrincipalIsRejected(t *testing.T) {
	revocations := NewMemoryRevocations(defaultTestTTL)
	require.NoError(t, revocations.Revoke(context.Background(), "u1"))
	v := NewTokenVerifier(&fakeIdentity{principal: &Principal{UID: "u1"}}, revocations)

	_, err := v.Verify(context.Background(), "still-valid-signature")

	assert.Equal(t, apperr.KindInvalidCredential, apperr.KindOf(err))
}

func TestVerify_RevocationBackendDown(t *testing.T) {
	v := NewTokenVerifier(&fakeIdentity{principal: &Principal{UID: "u1"}}, failingRevocations{})

	_, err := v.Verify(context.Background(), "tok")

	assert.Equal(t, apperr.KindAuthServiceUnavailable, apperr.KindOf(err))
}

func TestVerify_SharedRevocationOutageDoesNotLockOut(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	revocations := NewMirroredRevocations(NewRedisRevocations(client, defaultTestTTL), defaultTestTTL, nil, nil)
	v := NewTokenVerifier(&fakeIdentity{principal: &Principal{UID: "u1"}}, revocations)
	mr.Close()

	got, err := v.Verify(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)
}
