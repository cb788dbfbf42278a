package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/auth/domain"
	"github.com/projectdash/dashboard-backend/internal/logger"
)

type ProfileStore interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*domain.Profile, error)
	Upsert(ctx context.Context, req *domain.SyncProfileRequest) (*domain.Profile, error)
	Update(ctx context.Context, uid string, req *domain.UpdateProfileRequest) (*domain.Profile, error)
}

type AuthService struct {
	profiles ProfileStore
}

func NewAuthService(profiles ProfileStore) *AuthService {
	return &AuthService{profiles: profiles}
}

func (s *AuthService) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	p, err := s.profiles.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, classify(err, "load profile")
	}
	return p, nil
}

// SyncProfile creates or refreshes the local profile from identity data.
// The email falls back to a synthetic address when the token carries none.
func (s *AuthService) SyncProfile(ctx context.Context, req *domain.SyncProfileRequest) (*domain.Profile, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		req.Email = req.FirebaseUID + "@firebase.local"
	}

	p, err := s.profiles.Upsert(ctx, req)
	if err != nil {
		return nil, classify(err, "sync profile")
	}

	logger.FromContext(ctx).Info("profile synced", zap.String("uid", req.FirebaseUID))
	return p, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, uid string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	p, err := s.profiles.Update(ctx, uid, req)
	if err != nil {
		return nil, classify(err, "update profile")
	}
	return p, nil
}

func classify(err error, op string) error {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, op, err)
}
