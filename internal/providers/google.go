package providers

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

type googleJWKS struct {
	Keys []googleJWK `json:"keys"`
}

type googleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// GoogleKeySet caches Google's OIDC signing keys for 24h.
type GoogleKeySet struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	expiresAt  time.Time
	httpClient *http.Client
	jwksURL    string
}

func NewGoogleKeySet() *GoogleKeySet {
	return &GoogleKeySet{
		keys:       make(map[string]*rsa.PublicKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwksURL:    googleJWKSURL,
	}
}

func (ks *GoogleKeySet) fetch() error {
	resp, err := ks.httpClient.Get(ks.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks googleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.keys = make(map[string]*rsa.PublicKey)
	for _, jwk := range jwks.Keys {
		pubKey, err := parseRSAPublicKey(jwk.N, jwk.E)
		if err != nil {
			continue
		}
		ks.keys[jwk.Kid] = pubKey
	}
	ks.expiresAt = time.Now().Add(24 * time.Hour)
	return nil
}

func (ks *GoogleKeySet) PublicKey(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	if key, ok := ks.keys[kid]; ok && time.Now().Before(ks.expiresAt) {
		ks.mu.RUnlock()
		return key, nil
	}
	ks.mu.RUnlock()

	if err := ks.fetch(); err != nil {
		return nil, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if key, ok := ks.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("public key with kid %s not found", kid)
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Google verifies OIDC id_tokens offline against the cached key set.
type Google struct {
	clientID string
	keySet   *GoogleKeySet
}

func NewGoogle(clientID string) *Google {
	return &Google{clientID: clientID, keySet: NewGoogleKeySet()}
}

func (g *Google) Name() string { return models.ProviderGoogle }

func (g *Google) Verify(payload Payload) error {
	_, err := g.parse(payload)
	return err
}

func (g *Google) Profile(payload Payload) (CanonicalProfile, error) {
	claims, err := g.parse(payload)
	if err != nil {
		return CanonicalProfile{}, err
	}
	return CanonicalProfile{
		Provider:      g.Name(),
		ExternalID:    claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
		AvatarURL:     claims.Picture,
	}, nil
}

func (g *Google) parse(payload Payload) (*googleClaims, error) {
	idToken := payload["id_token"]
	if idToken == "" {
		return nil, ErrMalformedPayload
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id_token missing kid header")
		}
		return g.keySet.PublicKey(kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if claims.Issuer != "https://accounts.google.com" && claims.Issuer != "accounts.google.com" {
		return nil, fmt.Errorf("%w: unexpected issuer %s", ErrInvalidSignature, claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, ErrMalformedPayload
	}
	return claims, nil
}
