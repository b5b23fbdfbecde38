package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/config"
	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.LoginAttempt{},
		&models.EmailToken{},
		&models.Referral{},
		&models.Friendship{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		SessionTTL:         time.Hour,
		VerifyTokenTTL:     24 * time.Hour,
		ResetTokenTTL:      time.Hour,
		MaxLoginAttempts:   5,
		AttemptWindow:      15 * time.Minute,
		LockoutDuration:    30 * time.Minute,
		AttemptRetention:   24 * time.Hour,
		ReferralCodeLength: 8,
		ReferralMaxRetries: 5,
		PasswordMinEntropy: 30,
		BaseURL:            "http://test.local",
		UploadURLPrefix:    "/uploads/",
	}
}

type sentMail struct {
	To          string
	DisplayName string
	Link        string
}

// fakeMailer records outgoing mail instead of dialing SMTP.
type fakeMailer struct {
	mu            sync.Mutex
	Verifications []sentMail
	Resets        []sentMail
}

func (m *fakeMailer) SendVerificationEmail(to, displayName, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Verifications = append(m.Verifications, sentMail{to, displayName, link})
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(to, displayName, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, sentMail{to, displayName, link})
	return nil
}

func (m *fakeMailer) lastVerificationToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Verifications) == 0 {
		t.Fatal("no verification email sent")
	}
	return tokenFromLink(t, m.Verifications[len(m.Verifications)-1].Link)
}

func (m *fakeMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Resets) == 0 {
		t.Fatal("no reset email sent")
	}
	return tokenFromLink(t, m.Resets[len(m.Resets)-1].Link)
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	_, token, ok := strings.Cut(link, "token=")
	if !ok {
		t.Fatalf("link %q carries no token", link)
	}
	return token
}

type enqueued struct {
	UserID  uuid.UUID
	Type    string
	Related *uuid.UUID
}

// recordingSink captures notifications enqueued by the referral flow.
type recordingSink struct {
	mu      sync.Mutex
	Entries []enqueued
}

func (s *recordingSink) Enqueue(userID uuid.UUID, notifType, content string, relatedUserID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, enqueued{UserID: userID, Type: notifType, Related: relatedUserID})
	return nil
}

type testEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	mailer    *fakeMailer
	sink      *recordingSink
	sessions  *SessionService
	attempts  *AttemptService
	tokens    *TokenService
	referrals *ReferralService
	identity  *IdentityService
	accounts  *AccountService
	auth      *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := openTestDB(t)
	cfg := testConfig()
	mailer := &fakeMailer{}
	sink := &recordingSink{}

	sessions := NewSessionService(db, cfg.SessionTTL)
	attempts := NewAttemptService(db, cfg.MaxLoginAttempts, cfg.AttemptWindow, cfg.LockoutDuration, cfg.AttemptRetention)
	tokens := NewTokenService(db, cfg.VerifyTokenTTL, cfg.ResetTokenTTL)
	referrals := NewReferralService(db, sink, cfg.ReferralCodeLength, cfg.ReferralMaxRetries)
	identity := NewIdentityService(db, referrals, cfg.UploadURLPrefix)
	accounts := NewAccountService(db)
	auth := NewAuthService(db, cfg, identity, sessions, attempts, tokens, referrals, accounts, mailer)

	return &testEnv{
		db:        db,
		cfg:       cfg,
		mailer:    mailer,
		sink:      sink,
		sessions:  sessions,
		attempts:  attempts,
		tokens:    tokens,
		referrals: referrals,
		identity:  identity,
		accounts:  accounts,
		auth:      auth,
	}
}

// seedUser inserts a bare user with a referral code derived from the name.
func seedUser(t *testing.T, db *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()

	code, err := randomCode(8)
	if err != nil {
		t.Fatalf("failed to generate code: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		DisplayName:  "Test User",
		ReferralCode: code,
	}
	if mutate != nil {
		mutate(user)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func strPtr(s string) *string { return &s }
