package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionService issues and validates opaque login credentials. Tokens
// are random, stored hashed, and expire at an absolute deadline; there
// is no sliding renewal and no denylist.
type SessionService struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessionService(db *gorm.DB, ttl time.Duration) *SessionService {
	return &SessionService{db: db, ttl: ttl, now: time.Now}
}

// Issue creates a session for the user and returns the raw token. The
// raw value is never stored and cannot be recovered later.
func (s *SessionService) Issue(userID uuid.UUID) (string, *models.Session, error) {
	raw, err := newOpaqueToken()
	if err != nil {
		return "", nil, err
	}

	session := models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}
	return raw, &session, nil
}

// Validate resolves a raw token to its user. Expired sessions are
// rejected and their rows swept.
func (s *SessionService) Validate(raw string) (*models.User, *models.Session, error) {
	var session models.Session
	if err := s.db.Where("token_hash = ?", hashToken(raw)).First(&session).Error; err != nil {
		return nil, nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		s.db.Delete(&session)
		return nil, nil, ErrSessionExpired
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", session.UserID).Error; err != nil {
		return nil, nil, ErrSessionNotFound
	}
	return &user, &session, nil
}

func (s *SessionService) Revoke(sessionID uuid.UUID) error {
	return s.db.Delete(&models.Session{}, "id = ?", sessionID).Error
}

// RevokeAll deletes every session of the user, e.g. after a password
// reset. The store is authoritative, so the delete is the revocation.
func (s *SessionService) RevokeAll(userID uuid.UUID) error {
	return s.db.Delete(&models.Session{}, "user_id = ?", userID).Error
}

func newOpaqueToken() (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(rawBytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
