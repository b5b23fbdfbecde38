package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	DisplayName  string `json:"display_name" validate:"required,max=100"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=16"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Origin   string `json:"origin" validate:"omitempty,max=64"`
}

// ProviderLoginRequest carries the raw provider payload; the named
// adapter verifies and normalizes it.
type ProviderLoginRequest struct {
	Provider     string            `json:"provider" validate:"required,oneof=telegram telegram-bot google github"`
	Payload      map[string]string `json:"payload" validate:"required"`
	ReferralCode string            `json:"referral_code" validate:"omitempty,max=16"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type LinkProviderRequest struct {
	Provider   string `json:"provider" validate:"required,oneof=telegram telegram-bot google github"`
	ExternalID string `json:"external_id" validate:"required,max=255"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	ReferralCode  string    `json:"referral_code"`
	ReferralCount int       `json:"referral_count"`
	Providers     []string  `json:"providers"`
}

type RegisterResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	EmailSent bool      `json:"email_sent"`
}

type LockedResponse struct {
	Error                bool   `json:"error"`
	Message              string `json:"message"`
	LockRemainingMinutes int    `json:"lock_remaining_minutes"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
