package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenService manages single-use email tokens for verification and
// password reset. Consumption deletes the row whatever the outcome.
type TokenService struct {
	db        *gorm.DB
	verifyTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func NewTokenService(db *gorm.DB, verifyTTL, resetTTL time.Duration) *TokenService {
	return &TokenService{db: db, verifyTTL: verifyTTL, resetTTL: resetTTL, now: time.Now}
}

// Issue creates a token for the user and returns the raw value. A new
// reset token purges any outstanding ones, so at most one is live.
func (t *TokenService) Issue(userID uuid.UUID, purpose string) (string, error) {
	ttl, err := t.ttlFor(purpose)
	if err != nil {
		return "", err
	}

	if purpose == models.TokenPurposeReset {
		if err := t.db.Delete(&models.EmailToken{}, "user_id = ? AND purpose = ?", userID, purpose).Error; err != nil {
			return "", fmt.Errorf("failed to purge prior reset tokens: %w", err)
		}
	}

	raw, err := newOpaqueToken()
	if err != nil {
		return "", err
	}

	token := models.EmailToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		Purpose:   purpose,
		ExpiresAt: t.now().Add(ttl),
	}
	if err := t.db.Create(&token).Error; err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", purpose, err)
	}
	return raw, nil
}

// Consume resolves and destroys a token. Expired rows are swept on
// detection; a consumed token can never be consumed again.
func (t *TokenService) Consume(raw, purpose string) (*models.User, error) {
	var token models.EmailToken
	err := t.db.Where("token_hash = ? AND purpose = ?", hashToken(raw), purpose).First(&token).Error
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if t.now().After(token.ExpiresAt) {
		t.db.Delete(&token)
		return nil, ErrTokenExpired
	}

	if err := t.db.Delete(&token).Error; err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	var user models.User
	if err := t.db.First(&user, "id = ?", token.UserID).Error; err != nil {
		return nil, ErrTokenInvalid
	}
	return &user, nil
}

func (t *TokenService) ttlFor(purpose string) (time.Duration, error) {
	switch purpose {
	case models.TokenPurposeVerify:
		return t.verifyTTL, nil
	case models.TokenPurposeReset:
		return t.resetTTL, nil
	}
	return 0, fmt.Errorf("unknown token purpose %q", purpose)
}
