package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SignedURLSigner creates and validates signed download tokens for objects
// served by the local storage backend.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token referencing the stored object name.
func (s *SignedURLSigner) Generate(name string) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, fmt.Errorf("object name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedName := base64.RawURLEncoding.EncodeToString([]byte(name))
	payload := fmt.Sprintf("%d|%s", expiresAt.Unix(), encodedName)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	token := strings.Join([]string{fmt.Sprintf("%d", expiresAt.Unix()), encodedName, signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded object name.
func (s *SignedURLSigner) Parse(token string) (name string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, fmt.Errorf("invalid token format")
	}
	ts := parts[0]
	encodedName := parts[1]
	signature := parts[2]

	rawName, err := base64.RawURLEncoding.DecodeString(encodedName)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("decode name: %w", err)
	}

	expUnix, err := parseUnix(ts)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt = time.Unix(expUnix, 0)

	payload := fmt.Sprintf("%s|%s", ts, encodedName)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	if time.Now().After(expiresAt) {
		return "", time.Time{}, fmt.Errorf("token expired")
	}
	return string(rawName), expiresAt, nil
}

func parseUnix(raw string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(raw, "%d", &ts)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	return ts, nil
}
