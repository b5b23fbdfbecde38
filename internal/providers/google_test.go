package providers

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "test-client.apps.googleusercontent.com"

type googleTestIssuer struct {
	key    *rsa.PrivateKey
	kid    string
	server *httptest.Server
}

// newGoogleTestIssuer stands up a JWKS endpoint backed by a fresh RSA
// key and points the adapter's key set at it.
func newGoogleTestIssuer(t *testing.T) *googleTestIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	issuer := &googleTestIssuer{key: key, kid: "test-kid-1"}
	issuer.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwks := googleJWKS{Keys: []googleJWK{{
			Kty: "RSA",
			Kid: issuer.kid,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}}
		json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(issuer.server.Close)
	return issuer
}

func (i *googleTestIssuer) adapter() *Google {
	g := NewGoogle(testClientID)
	g.keySet.jwksURL = i.server.URL
	return g
}

func (i *googleTestIssuer) mint(t *testing.T, mutate func(*googleClaims)) string {
	t.Helper()

	claims := &googleClaims{
		Email:         "goo@example.com",
		EmailVerified: true,
		Name:          "Goo Gle",
		Picture:       "https://lh3.googleusercontent.com/a/pic",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "google-sub-1",
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.kid
	signed, err := token.SignedString(i.key)
	if err != nil {
		t.Fatalf("failed to sign id_token: %v", err)
	}
	return signed
}

func TestGoogle_ValidIDToken(t *testing.T) {
	issuer := newGoogleTestIssuer(t)
	adapter := issuer.adapter()
	payload := Payload{"id_token": issuer.mint(t, nil)}

	if err := adapter.Verify(payload); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	profile, err := adapter.Profile(payload)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.ExternalID != "google-sub-1" {
		t.Fatalf("expected sub as external id, got %q", profile.ExternalID)
	}
	if profile.Email != "goo@example.com" || !profile.EmailVerified {
		t.Fatal("verified email not forwarded")
	}
}

func TestGoogle_WrongAudienceRejected(t *testing.T) {
	issuer := newGoogleTestIssuer(t)
	adapter := issuer.adapter()
	payload := Payload{"id_token": issuer.mint(t, func(c *googleClaims) {
		c.Audience = jwt.ClaimStrings{"someone-else.apps.googleusercontent.com"}
	})}

	if err := adapter.Verify(payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestGoogle_ExpiredTokenRejected(t *testing.T) {
	issuer := newGoogleTestIssuer(t)
	adapter := issuer.adapter()
	payload := Payload{"id_token": issuer.mint(t, func(c *googleClaims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	})}

	if err := adapter.Verify(payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestGoogle_ForeignIssuerRejected(t *testing.T) {
	issuer := newGoogleTestIssuer(t)
	adapter := issuer.adapter()
	payload := Payload{"id_token": issuer.mint(t, func(c *googleClaims) {
		c.Issuer = "https://evil.example.com"
	})}

	if err := adapter.Verify(payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestGoogle_TokenFromUnknownKeyRejected(t *testing.T) {
	issuer := newGoogleTestIssuer(t)
	forger := newGoogleTestIssuer(t)

	// Signed by a key the adapter's JWKS endpoint never served.
	forger.kid = "forged-kid"
	adapter := issuer.adapter()
	payload := Payload{"id_token": forger.mint(t, nil)}

	if err := adapter.Verify(payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestGoogle_MissingIDTokenRejected(t *testing.T) {
	issuer := newGoogleTestIssuer(t)
	adapter := issuer.adapter()

	if err := adapter.Verify(Payload{}); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
