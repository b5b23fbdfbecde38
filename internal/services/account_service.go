package services

import (
	"errors"
	"fmt"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrLastAuthMethod  = errors.New("cannot remove the last login method")
	ErrExternalIDTaken = errors.New("external id already linked to another account")
	ErrUserNotFound    = errors.New("user not found")
)

// AccountService links and unlinks login methods while guarding the
// invariant that a user is never left without a way to sign in.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// CanUnlink reports whether detaching the provider would leave at least
// one login method behind.
func (s *AccountService) CanUnlink(user *models.User, provider string) error {
	if _, err := externalIDColumn(provider); err != nil {
		return err
	}

	id := user.ExternalID(provider)
	if id == nil || *id == "" {
		return fmt.Errorf("%s is not linked to this account", provider)
	}
	if user.AuthMethodCount() <= 1 {
		return ErrLastAuthMethod
	}
	return nil
}

// Unlink detaches an external provider from the user.
func (s *AccountService) Unlink(userID uuid.UUID, provider string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	if err := s.CanUnlink(&user, provider); err != nil {
		return nil, err
	}

	column, err := externalIDColumn(provider)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&user).Update(column, nil).Error; err != nil {
		return nil, fmt.Errorf("failed to unlink %s: %w", provider, err)
	}
	setExternalIDNil(&user, provider)
	return &user, nil
}

// Link attaches an external id to the user. An id already owned by a
// different account is refused; the unique index is the backstop.
func (s *AccountService) Link(userID uuid.UUID, provider, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, ErrInvalidProfile
	}
	column, err := externalIDColumn(provider)
	if err != nil {
		return nil, err
	}

	var owner models.User
	err = s.db.Where(column+" = ?", externalID).First(&owner).Error
	if err == nil && owner.ID != userID {
		return nil, ErrExternalIDTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("link lookup failed: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	if err := s.db.Model(&user).Update(column, externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrExternalIDTaken
		}
		return nil, fmt.Errorf("failed to link %s: %w", provider, err)
	}
	setExternalID(&user, provider, externalID)
	return &user, nil
}

func setExternalIDNil(user *models.User, provider string) {
	switch provider {
	case models.ProviderTelegram, models.ProviderTelegramBot:
		user.TelegramID = nil
	case models.ProviderGoogle:
		user.GoogleID = nil
	case models.ProviderGitHub:
		user.GitHubID = nil
	}
}
