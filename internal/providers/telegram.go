package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
)

// TelegramWidget verifies payloads produced by the Telegram Login Widget.
// The widget signs the sorted key=value lines with HMAC-SHA256 keyed by
// SHA256(bot token).
type TelegramWidget struct {
	botToken string
	window   time.Duration
	now      func() time.Time
}

func NewTelegramWidget(botToken string, window time.Duration) *TelegramWidget {
	return &TelegramWidget{botToken: botToken, window: window, now: time.Now}
}

func (t *TelegramWidget) Name() string { return models.ProviderTelegram }

func (t *TelegramWidget) Verify(payload Payload) error {
	hash := payload["hash"]
	if payload["id"] == "" || hash == "" {
		return ErrMalformedPayload
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+payload[k])
	}
	checkString := strings.Join(lines, "\n")

	secret := sha256.Sum256([]byte(t.botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return ErrInvalidSignature
	}
	return checkFreshness(payload["auth_date"], t.window, t.now())
}

func (t *TelegramWidget) Profile(payload Payload) (CanonicalProfile, error) {
	return telegramProfile(t.Name(), payload)
}

// TelegramBot verifies login links issued by the platform's own bot. The
// bot signs "id:issued_at" directly with the bot token.
type TelegramBot struct {
	botToken string
	window   time.Duration
	now      func() time.Time
}

func NewTelegramBot(botToken string, window time.Duration) *TelegramBot {
	return &TelegramBot{botToken: botToken, window: window, now: time.Now}
}

func (t *TelegramBot) Name() string { return models.ProviderTelegramBot }

func (t *TelegramBot) Verify(payload Payload) error {
	id := payload["id"]
	issuedAt := payload["issued_at"]
	signature := payload["signature"]
	if id == "" || issuedAt == "" || signature == "" {
		return ErrMalformedPayload
	}

	mac := hmac.New(sha256.New, []byte(t.botToken))
	mac.Write([]byte(id + ":" + issuedAt))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return checkFreshness(issuedAt, t.window, t.now())
}

func (t *TelegramBot) Profile(payload Payload) (CanonicalProfile, error) {
	return telegramProfile(t.Name(), payload)
}

func telegramProfile(provider string, payload Payload) (CanonicalProfile, error) {
	if payload["id"] == "" {
		return CanonicalProfile{}, ErrMalformedPayload
	}

	name := strings.TrimSpace(payload["first_name"] + " " + payload["last_name"])
	if name == "" {
		name = payload["username"]
	}

	// Telegram never discloses an email address.
	return CanonicalProfile{
		Provider:    provider,
		ExternalID:  payload["id"],
		DisplayName: name,
		AvatarURL:   payload["photo_url"],
	}, nil
}

func checkFreshness(unixStr string, window time.Duration, now time.Time) error {
	ts, err := strconv.ParseInt(unixStr, 10, 64)
	if err != nil {
		return ErrMalformedPayload
	}
	if now.Sub(time.Unix(ts, 0)) > window {
		return ErrStalePayload
	}
	return nil
}
