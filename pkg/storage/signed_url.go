package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UploadClaims is the scope carried by a local upload token.
type UploadClaims struct {
	Key         string            `json:"k"`
	Method      string            `json:"m"`
	ContentType string            `json:"ct,omitempty"`
	Metadata    map[string]string `json:"md,omitempty"`
	ExpiresAt   int64             `json:"exp"`
}

// SignedURLSigner creates and validates HMAC-signed upload tokens.
type SignedURLSigner struct {
	secret []byte
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret.
func NewSignedURLSigner(secret string) *SignedURLSigner {
	return &SignedURLSigner{secret: []byte(secret), now: time.Now}
}

// Generate returns a token binding claims to the signer's secret for ttl.
func (s *SignedURLSigner) Generate(claims UploadClaims, ttl time.Duration) (string, time.Time, error) {
	if claims.Key == "" || claims.Method == "" {
		return "", time.Time{}, fmt.Errorf("key and method required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}

	expiresAt := s.now().Add(ttl)
	claims.ExpiresAt = expiresAt.Unix()

	raw, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode claims: %w", err)
	}
	scope := base64.RawURLEncoding.EncodeToString(raw)
	return scope + "." + s.sign(scope), expiresAt, nil
}

// Parse validates a token and returns its claims.
func (s *SignedURLSigner) Parse(token string) (UploadClaims, error) {
	scope, signature, ok := strings.Cut(token, ".")
	if !ok || scope == "" || signature == "" {
		return UploadClaims{}, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}
	if !hmac.Equal([]byte(s.sign(scope)), []byte(signature)) {
		return UploadClaims{}, fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}

	raw, err := base64.RawURLEncoding.DecodeString(scope)
	if err != nil {
		return UploadClaims{}, fmt.Errorf("%w: decode scope", ErrInvalidToken)
	}
	var claims UploadClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return UploadClaims{}, fmt.Errorf("%w: decode claims", ErrInvalidToken)
	}
	if s.now().After(time.Unix(claims.ExpiresAt, 0)) {
		return UploadClaims{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(scope string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(scope))
	return hex.EncodeToString(mac.Sum(nil))
}
