package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/denizyilmazer/mingle-backend/internal/providers"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAccountBlocked = errors.New("account is blocked")
	ErrInvalidProfile = errors.New("invalid canonical profile")
)

// IdentityService unifies external provider identities into one user.
type IdentityService struct {
	db           *gorm.DB
	referrals    *ReferralService
	uploadPrefix string
}

func NewIdentityService(db *gorm.DB, referrals *ReferralService, uploadPrefix string) *IdentityService {
	return &IdentityService{db: db, referrals: referrals, uploadPrefix: uploadPrefix}
}

// Resolve finds or creates the user behind a canonical profile.
//
// Lookup order: external id, then email. An email hit is an account-link
// event: the external id attaches to the existing user instead of
// creating a duplicate. Blocked accounts are refused on every path.
func (s *IdentityService) Resolve(profile providers.CanonicalProfile) (*models.User, bool, error) {
	if profile.ExternalID == "" || profile.Provider == "" {
		return nil, false, ErrInvalidProfile
	}

	column, err := externalIDColumn(profile.Provider)
	if err != nil {
		return nil, false, err
	}

	var user models.User
	err = s.db.Where(column+" = ?", profile.ExternalID).First(&user).Error
	if err == nil {
		if user.Blocked {
			return nil, false, ErrAccountBlocked
		}
		if err := s.refresh(&user, profile); err != nil {
			return nil, false, err
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("external id lookup failed: %w", err)
	}

	if profile.Email != "" {
		email := NormalizeEmail(profile.Email)
		err = s.db.Where("email = ?", email).First(&user).Error
		if err == nil {
			if user.Blocked {
				return nil, false, ErrAccountBlocked
			}
			if err := s.attach(&user, column, profile); err != nil {
				return nil, false, err
			}
			return &user, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("email lookup failed: %w", err)
		}
	}

	created, err := s.create(column, profile)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// refresh updates mutable profile fields on login. The display name is
// never overwritten after creation, so in-app edits survive. The avatar
// follows the provider only while it was never replaced by an upload.
func (s *IdentityService) refresh(user *models.User, profile providers.CanonicalProfile) error {
	updates := map[string]interface{}{}

	if profile.AvatarURL != "" && profile.AvatarURL != user.AvatarURL &&
		!strings.HasPrefix(user.AvatarURL, s.uploadPrefix) {
		updates["avatar_url"] = profile.AvatarURL
		user.AvatarURL = profile.AvatarURL
	}
	if profile.Email != "" && profile.EmailVerified && user.Email == nil {
		email := NormalizeEmail(profile.Email)
		updates["email"] = email
		updates["email_verified"] = true
		user.Email = &email
		user.EmailVerified = true
	}

	if len(updates) == 0 {
		return nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to refresh profile: %w", err)
	}
	return nil
}

// attach links a new external id to an existing account found by email.
func (s *IdentityService) attach(user *models.User, column string, profile providers.CanonicalProfile) error {
	updates := map[string]interface{}{column: profile.ExternalID}
	if profile.EmailVerified && !user.EmailVerified {
		updates["email_verified"] = true
		user.EmailVerified = true
	}
	if user.AvatarURL == "" && profile.AvatarURL != "" {
		updates["avatar_url"] = profile.AvatarURL
		user.AvatarURL = profile.AvatarURL
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to attach %s identity: %w", profile.Provider, err)
	}
	setExternalID(user, profile.Provider, profile.ExternalID)
	return nil
}

// create persists a brand-new user. Duplicate-key conflicts on the
// referral code (or a concurrently claimed email) are recoverable: the
// loop regenerates and retries a bounded number of times.
func (s *IdentityService) create(column string, profile providers.CanonicalProfile) (*models.User, error) {
	displayName := profile.DisplayName
	if displayName == "" {
		displayName = "user-" + profile.ExternalID
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		code, err := s.referrals.GenerateUnique()
		if err != nil {
			return nil, err
		}

		user := models.User{
			ID:           uuid.New(),
			DisplayName:  displayName,
			AvatarURL:    profile.AvatarURL,
			ReferralCode: code,
		}
		setExternalID(&user, profile.Provider, profile.ExternalID)
		if profile.Email != "" {
			email := NormalizeEmail(profile.Email)
			user.Email = &email
			user.EmailVerified = profile.EmailVerified
		}

		err = s.db.Create(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		// Lost a race: either the code collided or the email was taken
		// concurrently. Re-resolve handles the email case.
		lastErr = err
		if profile.Email != "" {
			var existing models.User
			if s.db.Where("email = ?", NormalizeEmail(profile.Email)).First(&existing).Error == nil {
				if existing.Blocked {
					return nil, ErrAccountBlocked
				}
				if err := s.attach(&existing, column, profile); err != nil {
					return nil, err
				}
				return &existing, nil
			}
		}
	}
	return nil, fmt.Errorf("failed to create user after retries: %w", lastErr)
}

func externalIDColumn(provider string) (string, error) {
	switch provider {
	case models.ProviderTelegram, models.ProviderTelegramBot:
		return "telegram_id", nil
	case models.ProviderGoogle:
		return "google_id", nil
	case models.ProviderGitHub:
		return "github_id", nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidProfile, provider)
}

func setExternalID(user *models.User, provider, externalID string) {
	switch provider {
	case models.ProviderTelegram, models.ProviderTelegramBot:
		user.TelegramID = &externalID
	case models.ProviderGoogle:
		user.GoogleID = &externalID
	case models.ProviderGitHub:
		user.GitHubID = &externalID
	}
}
