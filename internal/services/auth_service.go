package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/config"
	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/denizyilmazer/mingle-backend/internal/providers"
	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	// Wrong password and unknown email collapse into this single outcome
	// so callers cannot enumerate registered addresses.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password is too weak")
)

// AccountLockedError is returned when the attempt guard refuses a
// password login. The remaining lockout is disclosed to the caller.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RemainingMinutes())
}

func (e *AccountLockedError) RemainingMinutes() int {
	mins := int(e.Remaining.Minutes())
	if e.Remaining > time.Duration(mins)*time.Minute {
		mins++
	}
	return mins
}

// Mailer sends account emails. Sending is fire-and-forget: a failure
// never rolls back token creation, a resend is always possible.
type Mailer interface {
	SendVerificationEmail(to, displayName, link string) error
	SendPasswordResetEmail(to, displayName, link string) error
}

// LoginResult is a freshly issued session plus its owner.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService wires the identity, session, attempt, token, referral and
// account services into the operations the handlers expose.
type AuthService struct {
	db        *gorm.DB
	cfg       *config.Config
	identity  *IdentityService
	sessions  *SessionService
	attempts  *AttemptService
	tokens    *TokenService
	referrals *ReferralService
	accounts  *AccountService
	mailer    Mailer
}

func NewAuthService(
	db *gorm.DB,
	cfg *config.Config,
	identity *IdentityService,
	sessions *SessionService,
	attempts *AttemptService,
	tokens *TokenService,
	referrals *ReferralService,
	accounts *AccountService,
	mailer Mailer,
) *AuthService {
	return &AuthService{
		db:        db,
		cfg:       cfg,
		identity:  identity,
		sessions:  sessions,
		attempts:  attempts,
		tokens:    tokens,
		referrals: referrals,
		accounts:  accounts,
		mailer:    mailer,
	}
}

// AuthenticateViaProvider logs in (or signs up) with a canonical profile
// already verified by a provider adapter. A referral code is only
// honored on first signup and never fails the login.
func (s *AuthService) AuthenticateViaProvider(profile providers.CanonicalProfile, referralCode string) (*LoginResult, error) {
	user, created, err := s.identity.Resolve(profile)
	if err != nil {
		return nil, err
	}

	if created && referralCode != "" {
		if err := s.referrals.Apply(user.ID, referralCode); err != nil {
			slog.Error("referral conversion failed", "error", err, "user_id", user.ID.String())
		}
	}

	return s.login(user)
}

// AuthenticateViaPassword runs the guarded password path: attempt guard,
// credential check, session issue, with the guard updated on every
// credential outcome.
func (s *AuthService) AuthenticateViaPassword(email, password, origin string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	status, err := s.attempts.Check(email)
	if err != nil {
		return nil, err
	}
	if status.Blocked {
		return nil, &AccountLockedError{Remaining: status.LockRemaining}
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		s.recordAttempt(email, origin, false)
		return nil, ErrInvalidCredentials
	}

	if user.Blocked {
		return nil, ErrAccountBlocked
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		s.recordAttempt(email, origin, false)
		return nil, ErrInvalidCredentials
	}

	s.recordAttempt(email, origin, true)
	return s.login(&user)
}

// RegisterWithPassword creates a local account and mails a verification
// link.
func (s *AuthService) RegisterWithPassword(email, password, displayName, referralCode string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || displayName == "" {
		return nil, errors.New("email and display name are required")
	}
	if err := passwordvalidator.Validate(password, s.cfg.PasswordMinEntropy); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashStr := string(hash)

	var user *models.User
	for i := 0; i < 3; i++ {
		code, err := s.referrals.GenerateUnique()
		if err != nil {
			return nil, err
		}

		candidate := models.User{
			ID:           uuid.New(),
			DisplayName:  displayName,
			Email:        &email,
			PasswordHash: &hashStr,
			ReferralCode: code,
		}
		err = s.db.Create(&candidate).Error
		if err == nil {
			user = &candidate
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		// Either the code collided or the email lost a signup race.
		if s.db.Where("email = ?", email).First(&existing).Error == nil {
			return nil, ErrEmailTaken
		}
	}
	if user == nil {
		return nil, ErrReferralCodeExhausted
	}

	if referralCode != "" {
		if err := s.referrals.Apply(user.ID, referralCode); err != nil {
			slog.Error("referral conversion failed", "error", err, "user_id", user.ID.String())
		}
	}

	s.sendVerification(user)
	return user, nil
}

// VerifyEmail consumes a verification token, marks the email verified
// and issues a session: the first reachability proof doubles as login.
func (s *AuthService) VerifyEmail(rawToken string) (*LoginResult, error) {
	user, err := s.tokens.Consume(rawToken, models.TokenPurposeVerify)
	if err != nil {
		return nil, err
	}

	if !user.EmailVerified {
		if err := s.db.Model(user).Update("email_verified", true).Error; err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	return s.login(user)
}

// ResendVerification mails a fresh verification link. The response is
// identical whether or not the address exists.
func (s *AuthService) ResendVerification(email string) {
	email = NormalizeEmail(email)

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return
	}
	if user.EmailVerified || user.Blocked {
		return
	}
	s.sendVerification(&user)
}

// RequestPasswordReset issues a reset token and mails it. Callers always
// see a generic success, so account existence is not disclosed.
func (s *AuthService) RequestPasswordReset(email string) {
	email = NormalizeEmail(email)

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return
	}
	if user.Blocked || user.Email == nil {
		return
	}

	raw, err := s.tokens.Issue(user.ID, models.TokenPurposeReset)
	if err != nil {
		slog.Error("failed to issue reset token", "error", err, "user_id", user.ID.String())
		return
	}

	// Fire-and-forget: a send failure never rolls back the token.
	link := s.cfg.BaseURL + "/reset-password?token=" + raw
	if err := s.mailer.SendPasswordResetEmail(*user.Email, user.DisplayName, link); err != nil {
		slog.Error("failed to send password reset email", "error", err)
	}
}

// ResetPassword consumes a reset token, replaces the credential and
// revokes every session issued before the reset.
func (s *AuthService) ResetPassword(rawToken, newPassword string) error {
	if err := passwordvalidator.Validate(newPassword, s.cfg.PasswordMinEntropy); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}

	user, err := s.tokens.Consume(rawToken, models.TokenPurposeReset)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.RevokeAll(user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if user.Email != nil {
		if err := s.attempts.Reset(*user.Email); err != nil {
			slog.Error("failed to reset attempt counter", "error", err, "user_id", user.ID.String())
		}
	}
	return nil
}

// LinkProvider attaches an external id to an existing account.
func (s *AuthService) LinkProvider(userID uuid.UUID, provider, externalID string) (*models.User, error) {
	return s.accounts.Link(userID, provider, externalID)
}

// UnlinkProvider detaches a provider, refusing to strand the account
// with zero login methods.
func (s *AuthService) UnlinkProvider(userID uuid.UUID, provider string) (*models.User, error) {
	return s.accounts.Unlink(userID, provider)
}

// Logout revokes one session.
func (s *AuthService) Logout(sessionID uuid.UUID) error {
	return s.sessions.Revoke(sessionID)
}

// DeleteAccount removes the user and every credential artifact. Local
// accounts must present their password again.
func (s *AuthService) DeleteAccount(userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	if user.PasswordHash != nil {
		if password == "" {
			return errors.New("password is required")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		tx.Delete(&models.Session{}, "user_id = ?", userID)
		tx.Delete(&models.EmailToken{}, "user_id = ?", userID)
		tx.Delete(&models.Notification{}, "user_id = ?", userID)
		if user.Email != nil {
			tx.Delete(&models.LoginAttempt{}, "identifier = ?", NormalizeEmail(*user.Email))
		}
		return tx.Delete(&user).Error
	})
}

func (s *AuthService) login(user *models.User) (*LoginResult, error) {
	if user.Blocked {
		return nil, ErrAccountBlocked
	}
	raw, session, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: raw, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (s *AuthService) sendVerification(user *models.User) {
	if user.Email == nil {
		return
	}

	raw, err := s.tokens.Issue(user.ID, models.TokenPurposeVerify)
	if err != nil {
		slog.Error("failed to issue verification token", "error", err, "user_id", user.ID.String())
		return
	}

	// Fire-and-forget: a send failure never rolls back the token.
	link := s.cfg.BaseURL + "/verify-email?token=" + raw
	if err := s.mailer.SendVerificationEmail(*user.Email, user.DisplayName, link); err != nil {
		slog.Error("failed to send verification email", "error", err)
	}
}

func (s *AuthService) recordAttempt(email, origin string, success bool) {
	if err := s.attempts.Record(email, origin, success); err != nil {
		slog.Error("failed to record login attempt", "error", err, "identifier", email)
	}
}
