package payload

import (
	"time"

	"github.com/siriwatk/noteflow-api/internal/model"
)

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Code        string `json:"code"         validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserResponse is the public-safe projection of a user. The password hash
// never leaves the server.
type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Verified       bool      `json:"verified"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUserResponse projects a user model into its public representation.
func NewUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID.Hex(),
		Email:          user.Email,
		Verified:       user.Verified,
		ProfilePicture: user.ProfilePicture,
		Role:           user.Role,
		CreatedAt:      user.CreatedAt,
	}
}
