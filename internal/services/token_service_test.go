package services

import (
	"errors"
	"testing"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
)

func TestToken_ConsumeIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, nil)

	raw, err := env.tokens.Issue(user.ID, models.TokenPurposeVerify)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := env.tokens.Consume(raw, models.TokenPurposeVerify)
	if err != nil {
		t.Fatalf("first Consume failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}

	if _, err := env.tokens.Consume(raw, models.TokenPurposeVerify); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on replay, got %v", err)
	}
}

func TestToken_WrongPurposeRejected(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, nil)

	raw, err := env.tokens.Issue(user.ID, models.TokenPurposeVerify)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := env.tokens.Consume(raw, models.TokenPurposeReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for purpose mismatch, got %v", err)
	}
}

func TestToken_ExpiredTokenSweptOnConsume(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, nil)

	raw, err := env.tokens.Issue(user.ID, models.TokenPurposeReset)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	env.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := env.tokens.Consume(raw, models.TokenPurposeReset); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// Detected expiry deletes the row, so a retry is InvalidToken.
	if _, err := env.tokens.Consume(raw, models.TokenPurposeReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after sweep, got %v", err)
	}
}

func TestToken_NewResetPurgesPriorOnes(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, nil)

	first, err := env.tokens.Issue(user.ID, models.TokenPurposeReset)
	if err != nil {
		t.Fatalf("first Issue failed: %v", err)
	}
	second, err := env.tokens.Issue(user.ID, models.TokenPurposeReset)
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	if _, err := env.tokens.Consume(first, models.TokenPurposeReset); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected first reset token to be purged, got %v", err)
	}
	if _, err := env.tokens.Consume(second, models.TokenPurposeReset); err != nil {
		t.Fatalf("latest reset token should consume, got %v", err)
	}

	var count int64
	env.db.Model(&models.EmailToken{}).Where("user_id = ? AND purpose = ?", user.ID, models.TokenPurposeReset).Count(&count)
	if count != 0 {
		t.Fatalf("expected no live reset tokens, found %d", count)
	}
}

func TestToken_VerifyTokensDoNotPurgeEachOther(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env.db, nil)

	if _, err := env.tokens.Issue(user.ID, models.TokenPurposeVerify); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := env.tokens.Issue(user.ID, models.TokenPurposeVerify); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var count int64
	env.db.Model(&models.EmailToken{}).Where("user_id = ? AND purpose = ?", user.ID, models.TokenPurposeVerify).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 live verification tokens, found %d", count)
	}
}
