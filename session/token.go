package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const tokenSize = 32

var ErrMalformedToken = errors.New("malformed session token")

// NewToken returns 32 random bytes, base64url encoded without padding.
func NewToken() (string, error) {
	var raw [tokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ParseToken checks that token has the shape NewToken produces.
func ParseToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenSize {
		return ErrMalformedToken
	}
	return nil
}

// hashToken is the storage identifier of a token. Raw tokens never reach
// Redis.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
