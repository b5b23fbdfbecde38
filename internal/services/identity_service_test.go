package services

import (
	"errors"
	"testing"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/denizyilmazer/mingle-backend/internal/providers"
)

func telegramProfile(id string) providers.CanonicalProfile {
	return providers.CanonicalProfile{
		Provider:    models.ProviderTelegram,
		ExternalID:  id,
		DisplayName: "Tele Gram",
		AvatarURL:   "https://t.me/i/userpic/1.jpg",
	}
}

func TestIdentity_CreateOnFirstLogin(t *testing.T) {
	env := newTestEnv(t)

	user, created, err := env.identity.Resolve(telegramProfile("42"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first login")
	}
	if user.TelegramID == nil || *user.TelegramID != "42" {
		t.Fatal("telegram id not persisted")
	}
	if user.ReferralCode == "" {
		t.Fatal("expected a referral code on creation")
	}
}

func TestIdentity_SecondLoginResolvesSameUser(t *testing.T) {
	env := newTestEnv(t)

	first, _, err := env.identity.Resolve(telegramProfile("42"))
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}

	second, created, err := env.identity.Resolve(telegramProfile("42"))
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if created {
		t.Fatal("expected created=false on repeat login")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestIdentity_DisplayNameNeverOverwritten(t *testing.T) {
	env := newTestEnv(t)

	user, _, err := env.identity.Resolve(telegramProfile("42"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if err := env.db.Model(user).Update("display_name", "Chosen Name").Error; err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	profile := telegramProfile("42")
	profile.DisplayName = "Provider Name"
	resolved, _, err := env.identity.Resolve(profile)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.DisplayName != "Chosen Name" {
		t.Fatalf("in-app rename lost, got %q", resolved.DisplayName)
	}
}

func TestIdentity_UploadedAvatarNotClobbered(t *testing.T) {
	env := newTestEnv(t)

	user, _, err := env.identity.Resolve(telegramProfile("42"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// An in-app upload pins the avatar.
	if err := env.db.Model(user).Update("avatar_url", "/uploads/custom.png").Error; err != nil {
		t.Fatalf("avatar update failed: %v", err)
	}

	profile := telegramProfile("42")
	profile.AvatarURL = "https://t.me/i/userpic/2.jpg"
	resolved, _, err := env.identity.Resolve(profile)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.AvatarURL != "/uploads/custom.png" {
		t.Fatalf("uploaded avatar clobbered, got %q", resolved.AvatarURL)
	}
}

func TestIdentity_ProviderAvatarRefreshes(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.identity.Resolve(telegramProfile("42")); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	profile := telegramProfile("42")
	profile.AvatarURL = "https://t.me/i/userpic/2.jpg"
	resolved, _, err := env.identity.Resolve(profile)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.AvatarURL != "https://t.me/i/userpic/2.jpg" {
		t.Fatalf("provider avatar not refreshed, got %q", resolved.AvatarURL)
	}
}

func TestIdentity_EmailMatchAttachesInsteadOfDuplicating(t *testing.T) {
	env := newTestEnv(t)
	existing := seedUser(t, env.db, func(u *models.User) {
		u.Email = strPtr("shared@example.com")
		u.PasswordHash = strPtr("x")
	})

	profile := providers.CanonicalProfile{
		Provider:      models.ProviderGoogle,
		ExternalID:    "google-sub-1",
		Email:         "Shared@Example.com",
		EmailVerified: true,
		DisplayName:   "Goo Gle",
	}
	resolved, created, err := env.identity.Resolve(profile)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if created {
		t.Fatal("email match must attach, not create")
	}
	if resolved.ID != existing.ID {
		t.Fatalf("expected user %s, got %s", existing.ID, resolved.ID)
	}
	if resolved.GoogleID == nil || *resolved.GoogleID != "google-sub-1" {
		t.Fatal("google id not attached")
	}
	if !resolved.EmailVerified {
		t.Fatal("verified provider email must mark the account verified")
	}

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestIdentity_VerifiedEmailAttachedOnRepeatLogin(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.identity.Resolve(telegramProfile("42")); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Telegram never carries an email; a later Google login on the same
	// telegram id would, but here the same provider gains one.
	profile := telegramProfile("42")
	profile.Email = "late@example.com"
	profile.EmailVerified = true
	resolved, _, err := env.identity.Resolve(profile)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Email == nil || *resolved.Email != "late@example.com" {
		t.Fatal("verified email not adopted")
	}
}

func TestIdentity_BlockedAccountRefused(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, func(u *models.User) {
		u.TelegramID = strPtr("42")
		u.Blocked = true
	})

	_, _, err := env.identity.Resolve(telegramProfile("42"))
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestIdentity_MissingExternalIDRejected(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.identity.Resolve(providers.CanonicalProfile{Provider: models.ProviderTelegram})
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}
