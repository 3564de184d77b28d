package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdatePreferencesRequest uses pointers so absent fields stay untouched.
type UpdatePreferencesRequest struct {
	NotifyRating          *bool `json:"notify_rating"`
	NotifyCommentOwn      *bool `json:"notify_comment_own"`
	NotifyCommentFavorite *bool `json:"notify_comment_favorite"`
	NotifyReport          *bool `json:"notify_report"`
}

type UserProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Reputation  float64   `json:"reputation"`
	UploadCount int       `json:"upload_count"`
	CreatedAt   time.Time `json:"created_at"`

	// Only present on the owner's own profile.
	Preferences *PreferencesResponse `json:"preferences,omitempty"`
}

type PreferencesResponse struct {
	NotifyRating          bool `json:"notify_rating"`
	NotifyCommentOwn      bool `json:"notify_comment_own"`
	NotifyCommentFavorite bool `json:"notify_comment_favorite"`
	NotifyReport          bool `json:"notify_report"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  UserProfileResponse `json:"user"`
}
