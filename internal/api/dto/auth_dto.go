package dto

import (
	"time"

	"github.com/campus-nfc/card-service/internal/service"
)

// RegisterRequest is the signup form.
type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	CardNumber      string `json:"card_number" validate:"required,cardnumber"`
	Department      string `json:"department" validate:"required,max=120"`
	Role            string `json:"role" validate:"required,oneof=student staff"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	ImageBase64     string `json:"image_base64,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	CardNumber string `json:"card_number" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	CardNumber string `json:"card_number" validate:"required"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// NewAuthResponse renders a session.
func NewAuthResponse(s *service.Session) AuthResponse {
	return AuthResponse{
		Token:     s.AccessToken,
		ExpiresAt: s.Token.ExpiresAt,
		User:      NewUserResponse(s.User),
	}
}
