package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
)

// GitHub normalizes the /user payload fetched by the outer OAuth layer.
// The code exchange already happened over TLS with the client secret, so
// the adapter only confirms the state echo we minted for this round trip
// and that it has not gone stale.
type GitHub struct {
	stateSecret string
	window      time.Duration
	now         func() time.Time
}

func NewGitHub(stateSecret string, window time.Duration) *GitHub {
	return &GitHub{stateSecret: stateSecret, window: window, now: time.Now}
}

func (g *GitHub) Name() string { return models.ProviderGitHub }

// State derives the state parameter for an authorization redirect issued
// at the given time. The callback hands the same issued_at back alongside
// the state echoed by GitHub.
func (g *GitHub) State(issuedAt string) string {
	mac := hmac.New(sha256.New, []byte(g.stateSecret))
	mac.Write([]byte("github:" + issuedAt))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *GitHub) Verify(payload Payload) error {
	state := payload["state"]
	issuedAt := payload["issued_at"]
	if payload["id"] == "" || state == "" || issuedAt == "" {
		return ErrMalformedPayload
	}
	if !hmac.Equal([]byte(g.State(issuedAt)), []byte(state)) {
		return ErrInvalidSignature
	}
	return checkFreshness(issuedAt, g.window, g.now())
}

func (g *GitHub) Profile(payload Payload) (CanonicalProfile, error) {
	if payload["id"] == "" {
		return CanonicalProfile{}, ErrMalformedPayload
	}

	name := payload["name"]
	if name == "" {
		name = payload["login"]
	}

	// Email comes from /user/emails and is only forwarded when GitHub
	// reports it verified.
	return CanonicalProfile{
		Provider:      g.Name(),
		ExternalID:    payload["id"],
		Email:         payload["email"],
		EmailVerified: payload["email"] != "" && payload["email_verified"] == "true",
		DisplayName:   name,
		AvatarURL:     payload["avatar_url"],
	}, nil
}
