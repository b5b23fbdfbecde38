package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider names accepted for external login identities.
const (
	ProviderTelegram    = "telegram"
	ProviderTelegramBot = "telegram-bot"
	ProviderGoogle      = "google"
	ProviderGitHub      = "github"
)

// User is the unified account record. A user always keeps at least one
// login method: an external provider id or a password hash.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName   string         `gorm:"size:100;not null" json:"display_name"`
	Email         *string        `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	EmailVerified bool           `gorm:"default:false" json:"email_verified"`
	PasswordHash  *string        `json:"-"`
	TelegramID    *string        `gorm:"size:64;uniqueIndex" json:"-"`
	GoogleID      *string        `gorm:"size:255;uniqueIndex" json:"-"`
	GitHubID      *string        `gorm:"column:github_id;size:64;uniqueIndex" json:"-"`
	AvatarURL     string         `gorm:"size:512" json:"avatar_url"`
	Blocked       bool           `gorm:"default:false" json:"-"`
	Admin         bool           `gorm:"default:false" json:"-"`
	ReferralCode  string         `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`
	ReferredByID  *uuid.UUID     `gorm:"type:uuid" json:"-"`
	ReferralCount int            `gorm:"default:0" json:"referral_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// ExternalID returns the stored external id for a provider name. The two
// telegram flows share one identity column.
func (u *User) ExternalID(provider string) *string {
	switch provider {
	case ProviderTelegram, ProviderTelegramBot:
		return u.TelegramID
	case ProviderGoogle:
		return u.GoogleID
	case ProviderGitHub:
		return u.GitHubID
	}
	return nil
}

// AuthMethodCount counts the login methods currently attached.
func (u *User) AuthMethodCount() int {
	n := 0
	for _, id := range []*string{u.TelegramID, u.GoogleID, u.GitHubID} {
		if id != nil && *id != "" {
			n++
		}
	}
	if u.PasswordHash != nil && *u.PasswordHash != "" {
		n++
	}
	return n
}
