package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttemptStatus is the admission decision for a password login.
type AttemptStatus struct {
	Blocked           bool
	RemainingAttempts int
	LockRemaining     time.Duration
}

// AttemptService is the sliding-window failed-login counter. It is a
// best-effort, storage-backed limiter: login is not a sub-millisecond
// path, so a table scan over a 15-minute window is acceptable.
type AttemptService struct {
	db          *gorm.DB
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	retention   time.Duration
	now         func() time.Time
}

func NewAttemptService(db *gorm.DB, maxAttempts int, window, lockout, retention time.Duration) *AttemptService {
	return &AttemptService{
		db:          db,
		maxAttempts: maxAttempts,
		window:      window,
		lockout:     lockout,
		retention:   retention,
		now:         time.Now,
	}
}

// Check counts failures inside the lookback window. Once the threshold
// is reached the lock is anchored to the most recent failure, so every
// further failure rolls it forward.
func (a *AttemptService) Check(identifier string) (AttemptStatus, error) {
	identifier = NormalizeEmail(identifier)
	now := a.now()

	var failures []models.LoginAttempt
	err := a.db.
		Where("identifier = ? AND success = ? AND created_at > ?", identifier, false, now.Add(-a.window)).
		Order("created_at DESC").
		Find(&failures).Error
	if err != nil {
		return AttemptStatus{}, fmt.Errorf("failed to load login attempts: %w", err)
	}

	if len(failures) >= a.maxAttempts {
		lastFailureAge := now.Sub(failures[0].CreatedAt)
		remaining := a.lockout - lastFailureAge
		if remaining > 0 {
			return AttemptStatus{Blocked: true, LockRemaining: remaining}, nil
		}
	}

	remaining := a.maxAttempts - len(failures)
	if remaining < 0 {
		remaining = 0
	}
	return AttemptStatus{RemainingAttempts: remaining}, nil
}

// Record appends an attempt and opportunistically prunes stale rows. A
// success clears prior failures so the counter never carries stale state.
func (a *AttemptService) Record(identifier, origin string, success bool) error {
	identifier = NormalizeEmail(identifier)

	a.db.Delete(&models.LoginAttempt{}, "created_at < ?", a.now().Add(-a.retention))

	attempt := models.LoginAttempt{
		ID:         uuid.New(),
		Identifier: identifier,
		Origin:     origin,
		Success:    success,
		CreatedAt:  a.now(),
	}
	if err := a.db.Create(&attempt).Error; err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	if success {
		return a.Reset(identifier)
	}
	return nil
}

// Reset clears the failure history for an identifier.
func (a *AttemptService) Reset(identifier string) error {
	identifier = NormalizeEmail(identifier)
	return a.db.Delete(&models.LoginAttempt{}, "identifier = ? AND success = ?", identifier, false).Error
}

// NormalizeEmail lower-cases and trims an email so lookups and unique
// indexes are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
