package domain

import (
	"time"

	"github.com/projectdash/dashboard-backend/internal/apperr"
)

var ErrProfileNotFound = apperr.New(apperr.KindNotFound, "profile not found")

// Profile is the local copy of an identity-provider user.
// Firebase UID is the primary identifier
type Profile struct {
	FirebaseUID string     `json:"firebase_uid"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name,omitempty"`
	PhotoURL    *string    `json:"photo_url,omitempty"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// SyncProfileRequest carries identity data merged into the local profile.
type SyncProfileRequest struct {
	FirebaseUID string
	Email       string
	DisplayName *string
	PhotoURL    *string
}

type UpdateProfileRequest struct {
	DisplayName *string
	PhotoURL    *string
}

const DefaultRole = "user"
