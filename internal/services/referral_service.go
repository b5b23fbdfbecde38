package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrReferralCodeExhausted = errors.New("could not generate a unique referral code")

// Alphabet excludes easily confused characters (0/O, 1/I).
const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NotificationSink enqueues an in-app notification for later delivery.
type NotificationSink interface {
	Enqueue(userID uuid.UUID, notifType, content string, relatedUserID *uuid.UUID) error
}

// ReferralService generates unique referral codes and converts
// redemptions into tracked referrals plus a mutual friendship.
type ReferralService struct {
	db         *gorm.DB
	sink       NotificationSink
	codeLength int
	maxRetries int
}

func NewReferralService(db *gorm.DB, sink NotificationSink, codeLength, maxRetries int) *ReferralService {
	return &ReferralService{db: db, sink: sink, codeLength: codeLength, maxRetries: maxRetries}
}

// GenerateUnique draws random codes until one is free. The pre-check is
// optimistic; the unique index on users.referral_code is the backstop,
// so a losing concurrent writer surfaces a conflict the caller retries.
func (r *ReferralService) GenerateUnique() (string, error) {
	for i := 0; i < r.maxRetries; i++ {
		code, err := randomCode(r.codeLength)
		if err != nil {
			return "", err
		}

		var count int64
		if err := r.db.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

// Apply links a new signup to the owner of the redeemed code: a referral
// row, a bumped counter, a mutual friendship and one notification per
// party. An unresolvable or self-referencing code is silently ignored so
// signup never fails on a bad code.
func (r *ReferralService) Apply(newUserID uuid.UUID, code string) error {
	if code == "" {
		return nil
	}

	var referrer models.User
	if err := r.db.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		slog.Info("ignoring unresolvable referral code", "code", code)
		return nil
	}
	if referrer.ID == newUserID {
		return nil
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		referral := models.Referral{
			ID:         uuid.New(),
			ReferrerID: referrer.ID,
			ReferredID: newUserID,
			CodeUsed:   code,
		}
		if err := tx.Create(&referral).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}

		if err := tx.Model(&models.User{}).Where("id = ?", referrer.ID).
			Update("referral_count", gorm.Expr("referral_count + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", newUserID).
			Update("referred_by_id", referrer.ID).Error; err != nil {
			return err
		}

		// Mutual friendship: one row per direction.
		edges := []models.Friendship{
			{ID: uuid.New(), UserID: referrer.ID, FriendID: newUserID},
			{ID: uuid.New(), UserID: newUserID, FriendID: referrer.ID},
		}
		for _, edge := range edges {
			if err := tx.Create(&edge).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply referral: %w", err)
	}

	if r.sink != nil {
		if err := r.sink.Enqueue(referrer.ID, "referral_converted", "Someone joined with your referral code", &newUserID); err != nil {
			slog.Error("failed to enqueue referrer notification", "error", err, "user_id", referrer.ID)
		}
		if err := r.sink.Enqueue(newUserID, "friend_added", "You are now friends with your referrer", &referrer.ID); err != nil {
			slog.Error("failed to enqueue referred notification", "error", err, "user_id", newUserID)
		}
	}
	return nil
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	for i := range buf {
		buf[i] = referralAlphabet[int(buf[i])%len(referralAlphabet)]
	}
	return string(buf), nil
}
